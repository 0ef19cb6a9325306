package category

import (
	"errors"
	"fmt"
)

var errNonPositiveCount = errors.New("count must be positive")

// Category represents a single text category
type Category struct {
	name         string
	tokens       map[string]int
	tally        int
	probInCat    float64
	probNotInCat float64
}

// PersistedCategory is the serializable form of a Category.
type PersistedCategory struct {
	Tokens map[string]int
	Tally  int
}

// NewCategory returns a pointer to a instance of type Category
func NewCategory(name string) *Category {
	return &Category{
		name:   name,
		tokens: make(map[string]int),
	}
}

// Name returns the category name.
func (cat *Category) Name() string {
	return cat.name
}

// TrainToken trains a specific token on this category
func (cat *Category) TrainToken(word string, count int) error {
	if count <= 0 {
		return fmt.Errorf("train %q: %w", word, errNonPositiveCount)
	}

	cat.tokens[word] += count
	cat.tally += count
	return nil
}

// UntrainToken untrains a specific token on this category
func (cat *Category) UntrainToken(word string, count int) error {
	if count <= 0 {
		return fmt.Errorf("untrain %q: %w", word, errNonPositiveCount)
	}

	current, ok := cat.tokens[word]
	if !ok {
		return nil
	}

	// Removing at least as many as we have kills the token.
	if count >= current {
		cat.tally -= current
		delete(cat.tokens, word)
		return nil
	}

	cat.tokens[word] -= count
	cat.tally -= count
	return nil
}

// GetTokenCount returns at tokens count from this category
func (cat *Category) GetTokenCount(word string) int {
	return cat.tokens[word]
}

// GetTally returns the total of all tokens for this category
func (cat *Category) GetTally() int {
	return cat.tally
}

// GetProbInCat is the probability that any given token is in this category.
func (cat *Category) GetProbInCat() float64 {
	return cat.probInCat
}

// GetProbNotInCat is the probability that any given token is not in this category.
func (cat *Category) GetProbNotInCat() float64 {
	return cat.probNotInCat
}

func (cat *Category) export() PersistedCategory {
	tokens := make(map[string]int, len(cat.tokens))
	for k, v := range cat.tokens {
		tokens[k] = v
	}
	return PersistedCategory{Tokens: tokens, Tally: cat.tally}
}
