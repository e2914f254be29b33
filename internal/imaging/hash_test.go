package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIndex(t *testing.T) {
	t.Run("should be deterministic and ignore case and surrounding space", func(t *testing.T) {
		a := HashIndex("Chicken Curry", 7)
		assert.Equal(t, a, HashIndex("Chicken Curry", 7))
		assert.Equal(t, a, HashIndex("  chicken curry ", 7))
	})

	t.Run("should stay in range", func(t *testing.T) {
		for _, name := range []string{"", "a", "Paella", "Tortilla de patatas"} {
			idx := HashIndex(name, 3)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 3)
		}
	})

	t.Run("should return zero for an empty set", func(t *testing.T) {
		assert.Equal(t, 0, HashIndex("anything", 0))
	})
}

func TestPlaceholder(t *testing.T) {
	t.Run("should return a pool member for any name", func(t *testing.T) {
		for _, name := range []string{"", "   ", "Pancakes", "Sopa de tomate"} {
			url := Placeholder(name)
			assert.NotEmpty(t, url)
			assert.True(t, IsPlaceholder(url))
		}
	})

	t.Run("should be stable per name", func(t *testing.T) {
		assert.Equal(t, Placeholder("Pancakes"), Placeholder("pancakes"))
	})

	t.Run("should not flag other URLs", func(t *testing.T) {
		assert.False(t, IsPlaceholder("https://example.com/a.jpg"))
	})
}

func TestSearchTerms(t *testing.T) {
	t.Run("should drop stop words and append two ingredients", func(t *testing.T) {
		q := Query{Name: "Pollo al curry con arroz", Ingredients: []string{"Chicken", "rice", "curry"}}
		assert.Equal(t, "pollo curry arroz chicken rice food", q.SearchTerms())
	})

	t.Run("should fall back to food dish without ingredients", func(t *testing.T) {
		q := Query{Name: "The Best Pancakes"}
		assert.Equal(t, "best pancakes food dish", q.SearchTerms())
	})

	t.Run("should skip blank ingredients", func(t *testing.T) {
		q := Query{Name: "Salad", Ingredients: []string{" ", "tomato"}}
		assert.Equal(t, "salad tomato food", q.SearchTerms())
	})
}
