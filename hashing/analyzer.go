package hashing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Analyzer turns one document into the tokens that get hashed. It is safe
// for concurrent use.
type Analyzer struct {
	cfg     Config
	tokenRE *regexp.Regexp
}

// NewAnalyzer returns an analyzer for cfg.
func NewAnalyzer(cfg Config) *Analyzer {
	re := cfg.tokenRE
	if re == nil {
		re = regexp.MustCompile(DefaultTokenPattern)
	}
	return &Analyzer{cfg: cfg, tokenRE: re}
}

// Analyze returns the n-grams of doc in document order.
func (a *Analyzer) Analyze(doc string) ([]string, error) {
	if !utf8.ValidString(doc) {
		return nil, ErrInvalidUTF8
	}
	if limit := a.cfg.maxDocumentBytes; limit > 0 && len(doc) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(doc), limit)
	}

	text, err := a.stripAccents(doc)
	if err != nil {
		return nil, err
	}
	if a.cfg.lowercase {
		text = strings.ToLower(text)
	}

	words := a.tokenRE.FindAllString(text, -1)
	tokens := words[:0]
	for _, w := range words {
		if _, stop := a.cfg.stopWords[w]; stop {
			continue
		}
		if a.cfg.stemmer != "" {
			stemmed, err := snowball.Stem(w, a.cfg.stemmer, true)
			if err != nil {
				return nil, fmt.Errorf("stem %q: %w", w, err)
			}
			if stemmed != "" {
				w = stemmed
			}
		}
		tokens = append(tokens, w)
	}

	return ngrams(tokens, a.cfg.ngramMin, a.cfg.ngramMax), nil
}

// Tokenizer adapts Analyze to a plain tokenizer. Documents that fail
// analysis yield no tokens.
func (a *Analyzer) Tokenizer() func(string) []string {
	return func(s string) []string {
		tokens, err := a.Analyze(s)
		if err != nil {
			return nil
		}
		return tokens
	}
}

func (a *Analyzer) stripAccents(s string) (string, error) {
	var t transform.Transformer
	switch a.cfg.stripAccents {
	case AccentsNone:
		return s, nil
	case AccentsUnicode:
		t = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	case AccentsASCII:
		t = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
			return r > unicode.MaxASCII
		})))
	}

	out, _, err := transform.String(t, s)
	if err != nil {
		return "", fmt.Errorf("strip accents: %w", err)
	}
	return out, nil
}

func ngrams(tokens []string, min, max int) []string {
	if min == 1 && max == 1 {
		return tokens
	}

	var out []string
	for n := min; n <= max && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
