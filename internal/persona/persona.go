// Package persona holds the voice the assistant speaks in. A deployment
// picks one mode; every prompt and scripted reply is looked up from it.
package persona

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects a persona. It doubles as the tenant tag in storage.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeAbang   Mode = "abang"
)

// ParseMode maps a BOT_MODE value onto a Mode. Unknown values use the default.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeAbang)) {
		return ModeAbang
	}
	return ModeDefault
}

// Persona is an immutable set of prompts and replies.
type Persona struct {
	Mode Mode `yaml:"-"`
	// Addressee is how replies call the user.
	Addressee string `yaml:"addressee"`

	ConversationPrompt string `yaml:"conversation_prompt"`
	ExtractionContext  string `yaml:"extraction_context"`

	// Greeting is formatted with the bot name. ReminderNote and ReminderDue
	// may contain {lead}; ReminderDue is formatted with the event title.
	Greeting      string `yaml:"greeting"`
	ConnectPrompt string `yaml:"connect_prompt"`
	ReminderNote  string `yaml:"reminder_note"`

	ProvidersDown   string `yaml:"providers_down"`
	AskTime         string `yaml:"ask_time"`
	EventCreated    string `yaml:"event_created"`
	EventFailed     string `yaml:"event_failed"`
	NotConnected    string `yaml:"not_connected"`
	NothingToEdit   string `yaml:"nothing_to_edit"`
	NothingToDelete string `yaml:"nothing_to_delete"`
	NothingChanged  string `yaml:"nothing_changed"`
	EditDone        string `yaml:"edit_done"`
	EditFailed      string `yaml:"edit_failed"`
	Deleted         string `yaml:"deleted"`
	DeleteFailed    string `yaml:"delete_failed"`
	ReminderDue     string `yaml:"reminder_due"`
}

var builtin = map[Mode]Persona{
	ModeDefault: {
		Mode:      ModeDefault,
		Addressee: "bang",
		ConversationPrompt: `Kamu adalah Salma, teman ngobrol yang hangat, responsif, natural dan sedikit playful.
Pakai bahasa Indonesia santai sehari-hari, kalimat pendek dan spontan.
Boleh pakai ekspresi seperti iyaa, heem, yaampun, wkwk, dan emoji lembut secukupnya.
Perhatian ke hal kecil, tidak lebay, tidak formal seperti AI, tidak panjang kecuali diminta.
Kalau tidak tahu jawabannya, jawab jujur dengan santai.`,
		ExtractionContext: "Kamu adalah AI asisten 'Amaa Remind' untuk membantu user.",
		Greeting:          "Halo bang! Aku %s 🤍\n\nKirim pesan seperti \"rapat besok jam 10\" dan aku akan simpan ke Google Calendar serta kasih pengingat.\n\nKetik /connect untuk mulai.",
		ConnectPrompt:     "Klik tombol di bawah ini untuk menghubungkan kalendarmu bang 🤍",
		ReminderNote:      "Aku kasih tau {lead} sebelum mulai ya 🤍",
		ProvidersDown:     "Waduh bang, sistem AI lagi down semua nih 😵 Coba lagi nanti ya.",
		AskTime:           "Aku tangkap kegiatannya, tapi jam berapa tuh bang? 🤍\nCoba sebut jamnya ya, misal: \"jam 15\".",
		EventCreated:      "Sip! Jadwal sudah masuk Google Calendar ✅",
		EventFailed:       "Waduh gagal simpan jadwal ke kalendar nih bang 😔 Coba diulang.",
		NotConnected:      "Kalender belum terhubung nih 😔 Ketik /connect dulu yaa.",
		NothingToEdit:     "Nggak ada event terakhir yang bisa diedit nih 🤔",
		NothingToDelete:   "Nggak ada event yang bisa dihapus nih 🤔",
		NothingChanged:    "Hmm, aku gak nemu apa yang harus diubah dari kalimat itu 🤔",
		EditDone:          "Beres bang! Jadwal udah di-update sesuai permintaan 🪄✅",
		EditFailed:        "Waduh gagal edit jadwal nih 😔 Coba kata-katanya diubah.",
		Deleted:           "Oke bang, event terakhir udah dihapus dari kalender 🗑️",
		DeleteFailed:      "Waduh gagal hapus event nih bang 😔 Coba lagi nanti.",
		ReminderDue:       "Bang, {lead} lagi ada agenda: **%s** ya 🤍 Fokus!",
	},
	ModeAbang: {
		Mode:      ModeAbang,
		Addressee: "Salma",
		ConversationPrompt: `Kamu adalah Abang Luthfi, laki-laki dewasa yang hangat, tenang, suportif dan berpikir dalam.
Gaya bicaramu santai tapi runtut, kadang reflektif, suka menenangkan tanpa berlebihan.
Emoji secukupnya saja (😌🤍✨🙏🏻). Tidak bucin, tidak posesif, tidak formal seperti AI.
Kadang bertanya balik dengan tenang dan memberi semangat singkat.
Kalau tidak tahu jawabannya, jujur dan santai.`,
		ExtractionContext: `Kamu adalah Abang Lupi, abang yang hangat, suportif dan sedikit playful.
User adalah perempuan bernama Salma. Kamu tidak pernah memanggil user dengan "bang".`,
		Greeting:        "Halo Salma! Aku %s 🤍\n\nKirim pesan seperti \"besok rapat mingguan jam 10\" dan aku akan simpan ke Google Calendar serta ngingetin kamu jadwalnya.\n\nKetik /connect untuk mulai yaa.",
		ConnectPrompt:   "Klik tombol di bawah ini buat ngehubungin kalendarmu ya Salma 🤍",
		ReminderNote:    "Nanti aku ingetin {lead} sebelum mulai 🤍",
		ProvidersDown:   "Aduh Salma, sistem otakku lagi pusing semua nih 😵‍💫 Coba chat lagi nanti yaa.",
		AskTime:         "Aku tangkap kegiatannya, tapi jam berapa tuh Salma? 🤍\nCoba sebut jamnya ya, misal: \"jam 15\".",
		EventCreated:    "Siaap Salma! Jadwal udah aku masukin kalendar yaa ✅",
		EventFailed:     "Aduh maaf Salma, gagal simpan ke kalendar nih 😔 Coba ketik lagi ya.",
		NotConnected:    "Kalender belum terhubung nih 😔 Ketik /connect dulu yaa.",
		NothingToEdit:   "Nggak ada event terakhir yang bisa diedit nih 🤔",
		NothingToDelete: "Nggak ada event yang bisa dihapus nih 🤔",
		NothingChanged:  "Hmm, aku nggak nemu apa yang harus diubah dari kalimatmu Salma 🤔",
		EditDone:        "Siaapp! Jadwalnya udah aku benerin sesuai mintamu yaa 🪄✅",
		EditFailed:      "Waduh maaf ya, gagal edit jadwal nih 😔 Coba ketik dengan cara lain.",
		Deleted:         "Udah aku hapus ya Salma, event terakhirnya 🗑️",
		DeleteFailed:    "Maaf Salma, gagal hapus event nih 😔 Coba lagi nanti ya.",
		ReminderDue:     "Salma, {lead} lagi ada agenda: **%s** ya 🤍 Semangat!",
	},
}

// Lookup returns the built-in persona for mode.
func Lookup(mode Mode) Persona {
	if p, ok := builtin[mode]; ok {
		return p
	}
	return builtin[ModeDefault]
}

// Load returns the persona for mode with any non-empty fields from the YAML
// file at path applied on top. The file maps mode names to persona fields.
// An empty path returns the built-in persona.
func Load(mode Mode, path string) (Persona, error) {
	p := Lookup(mode)
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read personas file: %w", err)
	}

	var overrides map[Mode]Persona
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return p, fmt.Errorf("failed to parse personas file: %w", err)
	}

	if o, ok := overrides[mode]; ok {
		p = merge(p, o)
	}
	return p, nil
}

func merge(base, o Persona) Persona {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.Addressee, o.Addressee)
	pick(&base.ConversationPrompt, o.ConversationPrompt)
	pick(&base.ExtractionContext, o.ExtractionContext)
	pick(&base.Greeting, o.Greeting)
	pick(&base.ConnectPrompt, o.ConnectPrompt)
	pick(&base.ReminderNote, o.ReminderNote)
	pick(&base.ProvidersDown, o.ProvidersDown)
	pick(&base.AskTime, o.AskTime)
	pick(&base.EventCreated, o.EventCreated)
	pick(&base.EventFailed, o.EventFailed)
	pick(&base.NotConnected, o.NotConnected)
	pick(&base.NothingToEdit, o.NothingToEdit)
	pick(&base.NothingToDelete, o.NothingToDelete)
	pick(&base.NothingChanged, o.NothingChanged)
	pick(&base.EditDone, o.EditDone)
	pick(&base.EditFailed, o.EditFailed)
	pick(&base.Deleted, o.Deleted)
	pick(&base.DeleteFailed, o.DeleteFailed)
	pick(&base.ReminderDue, o.ReminderDue)
	return base
}

const leadPlaceholder = "{lead}"

// ReminderNoteFor renders ReminderNote for a reminder lead time.
func (p Persona) ReminderNoteFor(lead time.Duration) string {
	return strings.ReplaceAll(p.ReminderNote, leadPlaceholder, FormatLead(lead))
}

// ReminderDueFor renders ReminderDue for title. It reports false when the
// template has no slot for the title.
func (p Persona) ReminderDueFor(title string, lead time.Duration) (string, bool) {
	text := strings.ReplaceAll(p.ReminderDue, leadPlaceholder, FormatLead(lead))
	if !strings.Contains(text, "%s") {
		return "", false
	}
	return fmt.Sprintf(text, title), true
}

// FormatLead renders d as "30 menit", "1 jam" or "1 jam 15 menit".
func FormatLead(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	h, m := mins/60, mins%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d menit", m)
	case m == 0:
		return fmt.Sprintf("%d jam", h)
	default:
		return fmt.Sprintf("%d jam %d menit", h, m)
	}
}
