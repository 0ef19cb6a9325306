package category

import (
	"errors"
	"fmt"
	"sort"
)

var (
	errTallyMismatch = errors.New("tally does not match token counts")
	errInvalidToken  = errors.New("invalid token count")
)

// Summary is a read-only snapshot of one category.
type Summary struct {
	TokenTally   int
	ProbInCat    float64
	ProbNotInCat float64
}

// Categories represents all our trained categories and enables us to interact with them.
type Categories struct {
	categories map[string]*Category
	dirty      bool
}

// NewCategories returns a pointer to a instance of type Categories
func NewCategories() *Categories {
	return &Categories{
		categories: make(map[string]*Category),
	}
}

// AddCategory is responsible for adding a new trainable category
func (cats *Categories) AddCategory(name string) *Category {
	cat := NewCategory(name)
	cats.categories[name] = cat
	cats.dirty = true
	return cat
}

// GetCategory returns a specified category, creating it when missing.
func (cats *Categories) GetCategory(name string) *Category {
	if cat, ok := cats.categories[name]; ok {
		return cat
	}
	return cats.AddCategory(name)
}

// LookupCategory returns a category without creating it.
func (cats *Categories) LookupCategory(name string) (*Category, bool) {
	cat, ok := cats.categories[name]
	return cat, ok
}

// DeleteCategory removes a category from the list of categories
func (cats *Categories) DeleteCategory(name string) {
	delete(cats.categories, name)
	cats.dirty = true
}

// Names returns the category names in sorted order.
func (cats *Categories) Names() []string {
	names := make([]string, 0, len(cats.categories))
	for name := range cats.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summaries returns a value snapshot of every category.
func (cats *Categories) Summaries() map[string]Summary {
	out := make(map[string]Summary, len(cats.categories))
	for name, cat := range cats.categories {
		out[name] = Summary{
			TokenTally:   cat.tally,
			ProbInCat:    cat.probInCat,
			ProbNotInCat: cat.probNotInCat,
		}
	}
	return out
}

// MarkProbabilitiesDirty forces the next EnsureCategoryProbabilities to recalculate.
func (cats *Categories) MarkProbabilitiesDirty() {
	cats.dirty = true
}

// EnsureCategoryProbabilities recalculates per-category probabilities when
// the tallies changed since the last calculation.
func (cats *Categories) EnsureCategoryProbabilities() {
	if !cats.dirty {
		return
	}

	total := 0
	for _, cat := range cats.categories {
		total += cat.tally
	}

	for _, cat := range cats.categories {
		if total == 0 {
			cat.probInCat, cat.probNotInCat = 0, 0
			continue
		}
		cat.probInCat = float64(cat.tally) / float64(total)
		cat.probNotInCat = float64(total-cat.tally) / float64(total)
	}
	cats.dirty = false
}

// ExportStates returns a deep copy of every category's tokens and tally.
func (cats *Categories) ExportStates() map[string]PersistedCategory {
	out := make(map[string]PersistedCategory, len(cats.categories))
	for name, cat := range cats.categories {
		out[name] = cat.export()
	}
	return out
}

// ReplaceStates validates states and replaces all categories with them.
func (cats *Categories) ReplaceStates(states map[string]PersistedCategory) error {
	next := make(map[string]*Category, len(states))
	for name, state := range states {
		sum := 0
		cat := NewCategory(name)
		for token, count := range state.Tokens {
			if token == "" || count <= 0 {
				return fmt.Errorf("%w for %q token %q: %d", errInvalidToken, name, token, count)
			}
			cat.tokens[token] = count
			sum += count
		}
		if sum != state.Tally {
			return fmt.Errorf("%w for %q: tally=%d sum=%d", errTallyMismatch, name, state.Tally, sum)
		}
		cat.tally = sum
		next[name] = cat
	}

	cats.categories = next
	cats.dirty = true
	return nil
}
