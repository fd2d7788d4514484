package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/persona"
)

var (
	// ErrEmptyTitle means the provider answered with nothing usable as a title.
	ErrEmptyTitle = errors.New("generated title is empty")
	// ErrNoStartTime means the extraction found an activity but no start time.
	ErrNoStartTime = errors.New("no start time in message")
)

// TextGenerator is satisfied by *Generator.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Client holds the prompts built on top of the generator.
type Client struct {
	gen    TextGenerator
	loc    *time.Location
	logger *slog.Logger
}

func NewClient(gen TextGenerator, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gen: gen, loc: loc, logger: logger}
}

const titlePrompt = `Kamu adalah pengekstrak judul kalender acara. Berikan maksimal 5 kata untuk dijadikan judul acara berdasarkan teks yang dikirimkan user.
Ganti kata ganti orang jika perlu. Buang keterangan waktu dan lokasi (seperti besok, jam 5, di rumah, dsb). Jangan pakai tanda kutip, jangan pakai titik.
Contoh:
Input: '31 menit lagi bola bareng rians di sudirman'
Output: Bola Bareng Rians
Input: 'besok ngerjain tugas ppkn'
Output: Ngerjain Tugas PPKN
Jangan bicara, berikan hanya judul.`

const extractPromptTemplate = `%s
Waktu sekarang (WIB): %s
Ekstrak komponen kegiatan dari kalimat berikut dalam format JSON murni:
{
  "title": "Judul acara",
  "location": "Lokasi atau null",
  "start": "2026-03-01T14:00:00+07:00",
  "end": "2026-03-01T15:00:00+07:00"
}
Aturan:
1. 'start' dan 'end' HARUS menggunakan format ISO 8601 dengan offset WIB (+07:00).
2. Jika jam tidak disebutkan, jadikan null.
3. Jika waktu selesai tidak disebutkan, buat 'end' 1 jam setelah 'start'.`

const patchPromptTemplate = `Waktu sekarang (WIB): %s
Berikut adalah detail acara di kalender:
Nama: %s
Lokasi: %s
Waktu Mulai: %s
Waktu Selesai: %s

Tugas: Berikan output JSON murni berisi HANYA field kalender yang perlu diubah sesuai permintaan user.
Format waktu harus mematuhi ISO 8601 dengan offset WIB (+07:00).
Struktur output JSON yang valid:
{
  "summary": "Judul acara baru",
  "location": "Lokasi baru",
  "start": {"dateTime": "2026-03-01T10:00:00+07:00", "timeZone": "Asia/Jakarta"},
  "end": {"dateTime": "2026-03-01T11:00:00+07:00", "timeZone": "Asia/Jakarta"}
}
Hanya sertakan field yang berubah. Jika tidak ada yang berubah, berikan {}.
HANYA berikan JSON murni, tanpa backticks, tanpa format markdown.`

// GenerateTitle asks for a short event title.
func (c *Client) GenerateTitle(ctx context.Context, text string) (string, error) {
	res, err := c.gen.Generate(ctx, Request{System: titlePrompt, User: text})
	if err != nil {
		return "", err
	}

	title := strings.NewReplacer(`"`, "", "'", "", "`", "").Replace(res.Text)
	title = strings.TrimSpace(title)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.TrimRight(title, ".")
	if title == "" || strings.EqualFold(title, "undefined") {
		return "", ErrEmptyTitle
	}
	return title, nil
}

type smartData struct {
	Title    *string `json:"title"`
	Location *string `json:"location"`
	Start    *string `json:"start"`
	End      *string `json:"end"`
}

// ExtractEvent lets the provider read the whole message. Title and location
// are left empty when the provider did not name them.
func (c *Client) ExtractEvent(ctx context.Context, p persona.Persona, text string, now time.Time) (models.ParsedEvent, error) {
	var ev models.ParsedEvent

	system := fmt.Sprintf(extractPromptTemplate, p.ExtractionContext, now.In(c.loc).Format(time.RFC3339))
	res, err := c.gen.Generate(ctx, Request{System: system, User: text, JSON: true})
	if err != nil {
		return ev, err
	}

	var data smartData
	if err := ExtractJSON(res.Text, &data); err != nil {
		return ev, err
	}

	start, err := parseOptionalTime(data.Start)
	if err != nil {
		return ev, err
	}
	if start == nil {
		return ev, ErrNoStartTime
	}
	end, err := parseOptionalTime(data.End)
	if err != nil {
		return ev, err
	}

	ev.Start = start.In(c.loc)
	if end != nil && end.After(*start) {
		ev.End = end.In(c.loc)
	} else {
		ev.End = ev.Start.Add(time.Hour)
	}
	if data.Title != nil {
		ev.Title = strings.TrimSpace(*data.Title)
	}
	if data.Location != nil {
		loc := strings.TrimSpace(*data.Location)
		if !strings.EqualFold(loc, "online") && !strings.EqualFold(loc, "null") {
			ev.Location = loc
		}
	}
	return ev, nil
}

type patchTime struct {
	DateTime string `json:"dateTime"`
}

type patchData struct {
	Summary  *string    `json:"summary"`
	Location *string    `json:"location"`
	Start    *patchTime `json:"start"`
	End      *patchTime `json:"end"`
}

// GenerateEventPatch turns an edit instruction into the fields to change on
// current. A moved start without an explicit end keeps the event's duration.
func (c *Client) GenerateEventPatch(ctx context.Context, current models.CalendarEvent, instruction string, now time.Time) (models.EventPatch, error) {
	var patch models.EventPatch

	location := current.Location
	if location == "" {
		location = "Online"
	}
	system := fmt.Sprintf(patchPromptTemplate,
		now.In(c.loc).Format(time.RFC3339),
		current.Summary,
		location,
		current.Start.In(c.loc).Format(time.RFC3339),
		current.End.In(c.loc).Format(time.RFC3339),
	)

	res, err := c.gen.Generate(ctx, Request{System: system, User: instruction, JSON: true})
	if err != nil {
		return patch, err
	}

	var data patchData
	if err := ExtractJSON(res.Text, &data); err != nil {
		return patch, err
	}

	if data.Summary != nil && strings.TrimSpace(*data.Summary) != "" && *data.Summary != current.Summary {
		s := strings.TrimSpace(*data.Summary)
		patch.Summary = &s
	}
	if data.Location != nil && strings.TrimSpace(*data.Location) != "" && *data.Location != current.Location {
		l := strings.TrimSpace(*data.Location)
		patch.Location = &l
	}

	var start, end *time.Time
	if data.Start != nil {
		if start, err = parseOptionalTime(&data.Start.DateTime); err != nil {
			return patch, err
		}
	}
	if data.End != nil {
		if end, err = parseOptionalTime(&data.End.DateTime); err != nil {
			return patch, err
		}
	}

	if start != nil && !start.Equal(current.Start) {
		s := start.In(c.loc)
		patch.Start = &s
		if end == nil {
			e := s.Add(current.Duration())
			patch.End = &e
		}
	}
	if end != nil && !end.Equal(current.End) {
		e := end.In(c.loc)
		patch.End = &e
	}
	return patch, nil
}

// Reply answers a conversational message in the persona's voice. When no
// provider answers, the persona's scripted apology is returned instead.
func (c *Client) Reply(ctx context.Context, p persona.Persona, text string) string {
	res, err := c.gen.Generate(ctx, Request{System: p.ConversationPrompt, User: text})
	if err != nil {
		c.logger.Error("Conversational reply failed", "error", err)
		return p.ProvidersDown
	}
	return res.Text
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: bad time %q", ErrMalformedJSON, v)
	}
	return &t, nil
}
