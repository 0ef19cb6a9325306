// Package bayes implements the naive Bayes text classifier served by the
// prediction endpoint.
package bayes

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/hickeroar/parahash/bayes/category"
	"github.com/hickeroar/parahash/parallel"
)

var (
	categoryNamePattern = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)

	// ErrInvalidCategoryName is returned for names outside [-_A-Za-z0-9]+.
	ErrInvalidCategoryName = errors.New("invalid category name")
)

// Classification is the best category for a sample and its score.
type Classification struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Classifier is responsible for classifying text samples. It is safe for
// concurrent use.
type Classifier struct {
	mu         sync.RWMutex
	categories category.Categories
	tokenizer  func(string) []string
	analyzer   string
}

// Option adjusts a Classifier under construction.
type Option func(*Classifier)

// WithTokenizer replaces the default whitespace tokenizer.
func WithTokenizer(fn func(string) []string) Option {
	return func(c *Classifier) {
		if fn != nil {
			c.tokenizer = fn
		}
	}
}

// WithAnalyzerSignature names the tokenizer's configuration. Saved models carry
// it and Load rejects models whose signature differs.
func WithAnalyzerSignature(signature string) Option {
	return func(c *Classifier) { c.analyzer = signature }
}

// NewClassifier returns a pointer to a instance of type Classifier
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		categories: *category.NewCategories(),
		tokenizer:  strings.Fields,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidCategoryName reports whether name may be used as a category.
func ValidCategoryName(name string) bool {
	return categoryNamePattern.MatchString(name)
}

func (c *Classifier) countTokens(sample string) map[string]int {
	occurrences := make(map[string]int)
	for _, token := range c.tokenizer(sample) {
		occurrences[token]++
	}
	return occurrences
}

// Train adds the tokens of sample to the named category.
func (c *Classifier) Train(name, sample string) error {
	if !ValidCategoryName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCategoryName, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cat := c.categories.GetCategory(name)
	for token, count := range c.countTokens(sample) {
		if err := cat.TrainToken(token, count); err != nil {
			return err
		}
	}
	if cat.GetTally() == 0 {
		c.categories.DeleteCategory(name)
	}
	c.categories.MarkProbabilitiesDirty()
	c.categories.EnsureCategoryProbabilities()
	return nil
}

// Untrain removes the tokens of sample from the named category. A category
// whose tally reaches zero is deleted.
func (c *Classifier) Untrain(name, sample string) error {
	if !ValidCategoryName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCategoryName, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cat, ok := c.categories.LookupCategory(name)
	if !ok {
		return nil
	}
	for token, count := range c.countTokens(sample) {
		if err := cat.UntrainToken(token, count); err != nil {
			return err
		}
	}
	if cat.GetTally() == 0 {
		c.categories.DeleteCategory(name)
	}
	c.categories.MarkProbabilitiesDirty()
	c.categories.EnsureCategoryProbabilities()
	return nil
}

// Score returns the positive per-category scores for sample.
func (c *Classifier) Score(sample string) map[string]float64 {
	occurrences := c.countTokens(sample)

	c.mu.RLock()
	defer c.mu.RUnlock()

	names := c.categories.Names()
	cats := make([]*category.Category, len(names))
	for i, name := range names {
		cats[i], _ = c.categories.LookupCategory(name)
	}

	type tokenStat struct {
		token string
		count int
		tally float64
	}
	stats := make([]tokenStat, 0, len(occurrences))
	for token, count := range occurrences {
		tally := 0
		for _, cat := range cats {
			tally += cat.GetTokenCount(token)
		}
		// Tokens seen in no category carry no evidence.
		if tally > 0 {
			stats = append(stats, tokenStat{token: token, count: count, tally: float64(tally)})
		}
	}
	// Fixed summation order keeps scores bit-stable across calls.
	sort.Slice(stats, func(i, j int) bool { return stats[i].token < stats[j].token })

	scores := make([]float64, len(cats))
	parallel.ForEach(len(cats), runtime.GOMAXPROCS(0), func(i int) {
		for _, st := range stats {
			tokenScore := float64(cats[i].GetTokenCount(st.token))
			scores[i] += float64(st.count) * bayesianProbability(cats[i], tokenScore, st.tally)
		}
	})

	out := make(map[string]float64)
	for i, name := range names {
		if scores[i] > 0 {
			out[name] = scores[i]
		}
	}
	return out
}

// Classify returns the highest scoring category. Ties go to the
// lexicographically smallest name. An empty Classification means no
// category matched.
func (c *Classifier) Classify(sample string) Classification {
	var best Classification
	for name, score := range c.Score(sample) {
		if score > best.Score || (score == best.Score && name < best.Category) {
			best = Classification{Category: name, Score: score}
		}
	}
	return best
}

// Predict returns the label for sample, or "" when nothing matched.
func (c *Classifier) Predict(sample string) string {
	return c.Classify(sample).Category
}

// Categories returns the trained category names in sorted order.
func (c *Classifier) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categories.Names()
}

// Summaries returns a snapshot of every category's tally and probabilities.
func (c *Classifier) Summaries() map[string]category.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categories.Summaries()
}

// Flush empties the categories to remove all values
func (c *Classifier) Flush() {
	c.mu.Lock()
	c.categories = *category.NewCategories()
	c.mu.Unlock()
}

func bayesianProbability(cat *category.Category, tokenScore, tokenTally float64) float64 {
	prc := cat.GetProbInCat()
	prnc := cat.GetProbNotInCat()
	prtnc := (tokenTally - tokenScore) / tokenTally
	prtc := tokenScore / tokenTally

	numerator := prtc * prc
	denominator := numerator + prtnc*prnc
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
