package imaging

import (
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	// English
	"a": true, "an": true, "and": true, "the": true, "with": true, "of": true,
	"in": true, "on": true, "for": true, "to": true, "style": true,
	// Spanish
	"al": true, "con": true, "de": true, "la": true, "las": true, "los": true,
	"el": true, "del": true, "en": true, "para": true, "por": true, "y": true,
}

// Query identifies the recipe an image is wanted for.
type Query struct {
	Name        string
	Ingredients []string
}

// SearchTerms builds the stock search string: the cleaned recipe name, up
// to two leading ingredients, then "food" ("food dish" without ingredients).
func (q Query) SearchTerms() string {
	words := strings.FieldsFunc(strings.ToLower(q.Name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	parts := make([]string, 0, len(words)+3)
	for _, w := range words {
		if !stopWords[w] {
			parts = append(parts, w)
		}
	}

	added := 0
	for _, ing := range q.Ingredients {
		if added == 2 {
			break
		}
		if ing = strings.ToLower(strings.TrimSpace(ing)); ing != "" {
			parts = append(parts, ing)
			added++
		}
	}

	if added > 0 {
		parts = append(parts, "food")
	} else {
		parts = append(parts, "food", "dish")
	}
	return strings.Join(parts, " ")
}
