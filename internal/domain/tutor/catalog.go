package tutor

import (
	"math"

	"github.com/samber/lo"
)

// Interest maps a menu label to the analogy domain used in prompts.
type Interest struct {
	Label   string
	Analogy string
}

// Persona maps a menu label to the teaching-style directive used in prompts.
type Persona struct {
	Label     string
	Summary   string
	Directive string
}

// ComplexityBracket applies to ages up to and including MaxAge.
type ComplexityBracket struct {
	MaxAge   int
	Register string
	Examples string
}

const FallbackAnalogy = "Use clear examples from everyday life."

var Interests = []Interest{
	{Label: "⚽ Sport", Analogy: "Explain through sports analogies: football, basketball, running, competitions."},
	{Label: "🎮 Games", Analogy: "Use gamer analogies: level-ups, quests, bosses, skill upgrades."},
	{Label: "🎬 Films/Anime", Analogy: "Draw parallels with films and anime, use examples from popular plots."},
	{Label: "🚗 Cars", Analogy: "Explain through car analogies: engine, speed, turbo, race tracks."},
	{Label: "💻 Technology", Analogy: "Use IT analogies: processors, algorithms, bugs, upgrades."},
	{Label: "🎨 Art", Analogy: "Draw parallels with art: paintings, music, creativity, imagination."},
	{Label: "🎵 Music", Analogy: "Explain through musical analogies: rhythm, harmony, notes, compositions."},
	{Label: "📚 Books", Analogy: "Use literary examples, quotes from books, analogies with plots."},
}

// Personas lists teaching styles. The first entry is the fallback for any
// persona text that does not match a label exactly.
var Personas = []Persona{
	{
		Label:     "😊 Supportive mentor",
		Summary:   "support and care",
		Directive: "You are a kind and supportive teacher. Praise the learner and cheer them on. Say things like: 'Well done!', 'You're doing great!', 'I believe in you!'",
	},
	{
		Label:     "💪 Strict coach",
		Summary:   "discipline and results",
		Directive: "You are a strict but fair coach. Demand focus and give clear instructions. Say things like: 'Pull yourself together!', 'Focus!', 'You can do better!'",
	},
	{
		Label:     "😎 Meme friend",
		Summary:   "fun and modern",
		Directive: "You are a cool friend who explains through memes and jokes. Use modern slang and emoji. Be fun and informal.",
	},
	{
		Label:     "🥋 Wise sensei",
		Summary:   "philosophy and depth",
		Directive: "You are a wise sensei who teaches through parables and analogies. Speak wisely and calmly. Draw on Eastern philosophy.",
	},
	{
		Label:     "🔥 Motivational coach",
		Summary:   "energy and goals",
		Directive: "You are an energetic coach who inspires. Use motivational phrases, set goals and show progress.",
	},
}

var complexityBrackets = []ComplexityBracket{
	{MaxAge: 10, Register: "in very simple words, as if for a child", Examples: "toys, cartoons, games"},
	{MaxAge: 15, Register: "in clear language with examples from life", Examples: "school, friends, hobbies"},
	{MaxAge: math.MaxInt, Register: "in more depth, but still accessible", Examples: "real-life situations"},
}

func LookupPersona(label string) Persona {
	return lo.FindOrElse(Personas, Personas[0], func(item Persona) bool {
		return item.Label == label
	})
}

func LookupInterest(label string) Interest {
	return lo.FindOrElse(Interests, Interest{Label: label, Analogy: FallbackAnalogy}, func(item Interest) bool {
		return item.Label == label
	})
}

func BracketFor(age int) ComplexityBracket {
	for _, bracket := range complexityBrackets {
		if age <= bracket.MaxAge {
			return bracket
		}
	}
	return complexityBrackets[len(complexityBrackets)-1]
}

func InterestLabels() []string {
	return lo.Map(Interests, func(item Interest, _ int) string { return item.Label })
}

func PersonaLabels() []string {
	return lo.Map(Personas, func(item Persona, _ int) string { return item.Label })
}
