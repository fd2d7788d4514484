package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

// Monday 2 March 2026, 08:00 WIB.
var now = time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Besok jam 9 rapat", "tomorrow at 9 rapat"},
		{"lusa pukul 14 kelas", "day after tomorrow at 14 kelas"},
		{"jam 10 sampe jam 12", "at 10 to at 12"},
		{"jam 9.30 pagi", "at 9.30 morning"},
		{"30 menit lagi bola", "in 30 minutes bola"},
		{"2 jam lagi makan", "in 2 hours makan"},
		{"setengah jam lagi", "in 30 minutes"},
		{"jam 7 malam", "at 7 evening"},
		{"jam 3 sore", "at 3 afternoon"},
		{"nanti malam jam 8", "tonight at 8"},
		{"minggu depan senin", "next week monday"},
		{"hari minggu jam 6", "hari sunday at 6"},
		{"jumat jam 1 siang", "friday at 1 afternoon"},
		{"hari ini jam 5", "today at 5"},
		{"17 agustus", "17 august"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotentWithoutTokens(t *testing.T) {
	in := "halo apa kabar hari ini capek"
	once := Normalize("halo apa kabar")
	assert.Equal(t, once, Normalize(once))
	assert.Equal(t, Normalize(in), Normalize(Normalize(in)))
}

func resolveRaw(text string) Resolution {
	return Resolve(Normalize(text), now, wib)
}

func TestResolveNotTemporal(t *testing.T) {
	for _, text := range []string{"halo apa kabar", "", "makasih ya 🤍"} {
		res := resolveRaw(text)
		assert.Equal(t, NotTemporal, res.Outcome, text)
	}
}

func TestResolveTimeUnclear(t *testing.T) {
	res := resolveRaw("besok rapat sama tim")
	assert.Equal(t, TimeUnclear, res.Outcome)
	assert.True(t, res.Start.IsZero())

	res = resolveRaw("besok pagi gym")
	assert.Equal(t, TimeUnclear, res.Outcome)
}

func TestResolveHourWithoutDayUsesFirstCandidateDate(t *testing.T) {
	res := resolveRaw("rapat jam 10")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, wib), res.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, wib), res.End)
}

func TestResolveRangeSameDay(t *testing.T) {
	res := resolveRaw("jam 10 sampe jam 12")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, 10, res.Start.Hour())
	assert.Equal(t, 12, res.End.Hour())
	assert.Equal(t, res.Start.YearDay(), res.End.YearDay())
}

func TestResolveOvernightRollsEndForward(t *testing.T) {
	res := Resolve("23:00 to 01:00", now, wib)
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 0, 0, 0, wib), res.Start)
	assert.Equal(t, time.Date(2026, 3, 3, 1, 0, 0, 0, wib), res.End)
	assert.Equal(t, 2*time.Hour, res.End.Sub(res.Start))
}

func TestResolveSecondHourIsEnd(t *testing.T) {
	res := resolveRaw("rapat jam 10, selesai jam 12, lanjut jam 15")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, 10, res.Start.Hour())
	assert.Equal(t, 12, res.End.Hour())
}

func TestResolveCertainDayAnchorsLaterHour(t *testing.T) {
	res := resolveRaw("jam 9 rapat, besok ya")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, wib), res.Start)
}

func TestResolveWithDayAndDayPart(t *testing.T) {
	res := resolveRaw("besok jam 7 malam dinner di senayan")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 3, 19, 0, 0, 0, wib), res.Start)
	assert.Equal(t, time.Date(2026, 3, 3, 20, 0, 0, 0, wib), res.End)
}

func TestResolveRelativeMinutes(t *testing.T) {
	res := resolveRaw("30 menit lagi bola bareng rians di sudirman")
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 30, 0, 0, wib), res.Start)
}

func TestResolveEvaluatesInFixedZone(t *testing.T) {
	utcNow := now.UTC()
	res := Resolve(Normalize("besok jam 9"), utcNow, wib)
	require.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, wib), res.Start)
	assert.Equal(t, wib, res.Start.Location())
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"besok jam 9 rapat sama tim di kantor", "rapat tim"},
		{"Lusa pukul 14.30 kelas kalkulus", "kelas kalkulus"},
		{"jam 10 sampe jam 12 belajar", "belajar"},
		{"besok jam 7 malam", DefaultTitle},
		{"30 menit lagi ke gym", "gym"},
		{"senin pagi ada meeting dengan klien", "meeting klien"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"besok jam 9 rapat di Kantor Pusat", "Kantor Pusat"},
		{"makan di rumah di Menteng jam 7 malam", "Menteng"},
		{"bola bareng rians di sudirman 30 menit lagi", "sudirman"},
		{"rapat jam 10 sampai 12", DefaultLocation},
		{"kelas di kampus besok pagi", "kampus"},
		{"belajar di jam 9", DefaultLocation},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLocation(tt.in))
		})
	}
}
