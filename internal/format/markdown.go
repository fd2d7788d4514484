package format

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string
// This is required because Telegram uses UTF-16 code units for entity offsets/lengths
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // Non-BMP characters (surrogate pairs)
			} else {
				length += 1
			}
		}
	}
	return length
}

type marker struct {
	token      string
	entityType string
	// wordBound markers only open after a non-word character and only close
	// before one, so /del_1 and snake_case stay literal.
	wordBound bool
}

var markers = []marker{
	{token: "**", entityType: "bold"},
	{token: "`", entityType: "code"},
	{token: "_", entityType: "italic", wordBound: true},
}

// ParseMarkdown strips the supported markers from text and returns the
// matching Telegram entities:
// - **bold** -> bold
// - `code` -> code
// - _italic_ -> italic
// Spans do not nest or cross lines; an unclosed marker is kept as text.
func ParseMarkdown(text string) ParseResult {
	var out strings.Builder
	var entities []tgbotapi.MessageEntity
	written := 0

	for i := 0; i < len(text); {
		inner, width, m, ok := span(text, i)
		if ok {
			entities = append(entities, tgbotapi.MessageEntity{
				Type:   m.entityType,
				Offset: written,
				Length: UTF16Len(inner),
			})
			out.WriteString(inner)
			written += UTF16Len(inner)
			i += width
			continue
		}

		_, size := utf8.DecodeRuneInString(text[i:])
		out.WriteString(text[i : i+size])
		written += UTF16Len(text[i : i+size])
		i += size
	}

	return ParseResult{
		Text:     strings.TrimRight(out.String(), " \n"),
		Entities: entities,
	}
}

// span reports whether a marked span opens at text[i], returning its inner
// text and the total byte width including markers.
func span(text string, i int) (string, int, marker, bool) {
	for _, m := range markers {
		if !strings.HasPrefix(text[i:], m.token) {
			continue
		}
		if m.wordBound && i > 0 && isWord(lastRune(text[:i])) {
			continue
		}

		rest := text[i+len(m.token):]
		end := strings.Index(rest, m.token)
		if end <= 0 {
			continue
		}
		inner := rest[:end]
		if strings.ContainsRune(inner, '\n') || strings.TrimSpace(inner) != inner {
			continue
		}
		after := rest[end+len(m.token):]
		if m.wordBound && after != "" && isWord(firstRune(after)) {
			continue
		}
		return inner, len(m.token)*2 + end, m, true
	}
	return "", 0, marker{}, false
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
