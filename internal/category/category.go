// Package category maps event titles onto the fixed tag set used for both
// calendar summaries and statistics.
package category

import "strings"

const (
	Meeting = "📞 Rapat"
	Study   = "📚 Belajar"
	Workout = "🏋️ Olahraga"
	Meal    = "🍽️ Makan"
	Leisure = "☕ Santai"
	Focus   = "🔕 Focus Session"

	genericPrefix = "📝 "
)

type rule struct {
	keywords []string
	tag      string
}

// Evaluated in order; the first rule with a matching keyword wins.
var rules = []rule{
	{[]string{"rapat", "meeting"}, Meeting},
	{[]string{"belajar", "kelas", "kampus", "kuliah"}, Study},
	{[]string{"gym", "lari", "olahraga"}, Workout},
	{[]string{"makan", "dinner", "lunch"}, Meal},
	{[]string{"nongkrong", "main", "jalan"}, Leisure},
	{[]string{"focus", "fokus"}, Focus},
}

// Classify returns the tag for title. Titles matching no rule pass through
// with a generic prefix.
func Classify(title string) string {
	lower := strings.ToLower(title)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.tag
			}
		}
	}
	return genericPrefix + title
}
