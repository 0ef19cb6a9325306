package hashing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kljensen/snowball"
	"github.com/twmb/murmur3"
)

// DefaultNFeatures is the default width of the hashed feature space.
const DefaultNFeatures = 1 << 20

// DefaultTokenPattern selects runs of two or more letters, digits or underscores.
const DefaultTokenPattern = `[\p{L}\p{N}_]{2,}`

// Norm selects the per-row normalization applied after hashing.
type Norm int

const (
	NormL2 Norm = iota
	NormL1
	NormNone
)

func (n Norm) String() string {
	switch n {
	case NormL2:
		return "l2"
	case NormL1:
		return "l1"
	case NormNone:
		return "none"
	}
	return fmt.Sprintf("Norm(%d)", int(n))
}

// ParseNorm maps "l1", "l2" and "none" to a Norm.
func ParseNorm(s string) (Norm, error) {
	switch strings.ToLower(s) {
	case "l2":
		return NormL2, nil
	case "l1":
		return NormL1, nil
	case "none", "":
		return NormNone, nil
	}
	return 0, &ConfigurationError{Field: "norm", Value: s, Reason: "must be one of none, l1, l2"}
}

// Dtype is the numeric type of the output values.
type Dtype int

const (
	Float64 Dtype = iota
	Float32
)

func (d Dtype) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("Dtype(%d)", int(d))
}

// AccentMode selects how accents are stripped before tokenizing.
type AccentMode int

const (
	AccentsNone AccentMode = iota
	AccentsASCII
	AccentsUnicode
)

func (a AccentMode) String() string {
	switch a {
	case AccentsNone:
		return "none"
	case AccentsASCII:
		return "ascii"
	case AccentsUnicode:
		return "unicode"
	}
	return fmt.Sprintf("AccentMode(%d)", int(a))
}

// Config is the immutable configuration shared by the analyzer, the
// vectorizer and its parallel wrapper. Build it with NewConfig.
type Config struct {
	nFeatures        int
	norm             Norm
	alternateSign    bool
	dtype            Dtype
	nJobs            int
	lowercase        bool
	stripAccents     AccentMode
	tokenPattern     string
	ngramMin         int
	ngramMax         int
	stopWords        map[string]struct{}
	stemmer          string
	binary           bool
	maxDocumentBytes int

	tokenRE *regexp.Regexp
}

// Option adjusts a Config under construction.
type Option func(*Config)

func WithNFeatures(n int) Option { return func(c *Config) { c.nFeatures = n } }
func WithNorm(n Norm) Option { return func(c *Config) { c.norm = n } }
func WithAlternateSign(on bool) Option { return func(c *Config) { c.alternateSign = on } }
func WithDtype(d Dtype) Option { return func(c *Config) { c.dtype = d } }
func WithNJobs(n int) Option { return func(c *Config) { c.nJobs = n } }
func WithLowercase(on bool) Option { return func(c *Config) { c.lowercase = on } }
func WithStripAccents(a AccentMode) Option { return func(c *Config) { c.stripAccents = a } }
func WithTokenPattern(p string) Option { return func(c *Config) { c.tokenPattern = p } }
func WithBinary(on bool) Option { return func(c *Config) { c.binary = on } }
func WithMaxDocumentBytes(n int) Option { return func(c *Config) { c.maxDocumentBytes = n } }

// WithStemmer enables snowball stemming for the given language.
func WithStemmer(language string) Option {
	return func(c *Config) { c.stemmer = strings.ToLower(language) }
}

// WithNgramRange sets the inclusive range of word n-gram lengths.
func WithNgramRange(min, max int) Option {
	return func(c *Config) {
		c.ngramMin = min
		c.ngramMax = max
	}
}

// WithStopWords drops the given tokens before n-grams are built. Words are
// matched after lowercasing when lowercasing is on.
func WithStopWords(words ...string) Option {
	return func(c *Config) {
		c.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			c.stopWords[w] = struct{}{}
		}
	}
}

// WithEnglishStopWords drops the built-in English stop words.
func WithEnglishStopWords() Option {
	return WithStopWords(englishStopWords...)
}

// NewConfig applies opts to the defaults and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	c := Config{
		nFeatures:     DefaultNFeatures,
		norm:          NormL2,
		alternateSign: true,
		dtype:         Float64,
		nJobs:         1,
		lowercase:     true,
		stripAccents:  AccentsNone,
		tokenPattern:  DefaultTokenPattern,
		ngramMin:      1,
		ngramMax:      1,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	re, err := regexp.Compile(c.tokenPattern)
	if err != nil {
		return Config{}, &ConfigurationError{Field: "token pattern", Value: c.tokenPattern, Reason: err.Error()}
	}
	c.tokenRE = re

	return c, nil
}

// Validate reports the first invalid field as a *ConfigurationError.
func (c Config) Validate() error {
	switch {
	case c.nFeatures <= 0:
		return &ConfigurationError{Field: "n_features", Value: c.nFeatures, Reason: "must be positive"}
	case c.nJobs < 1:
		return &ConfigurationError{Field: "n_jobs", Value: c.nJobs, Reason: "must be at least 1"}
	case c.norm < NormL2 || c.norm > NormNone:
		return &ConfigurationError{Field: "norm", Value: c.norm, Reason: "unknown normalization"}
	case c.dtype < Float64 || c.dtype > Float32:
		return &ConfigurationError{Field: "dtype", Value: c.dtype, Reason: "unknown dtype"}
	case c.stripAccents < AccentsNone || c.stripAccents > AccentsUnicode:
		return &ConfigurationError{Field: "strip_accents", Value: c.stripAccents, Reason: "unknown accent mode"}
	case c.ngramMin < 1 || c.ngramMax < c.ngramMin:
		return &ConfigurationError{Field: "ngram_range", Value: [2]int{c.ngramMin, c.ngramMax}, Reason: "need 1 <= min <= max"}
	case c.maxDocumentBytes < 0:
		return &ConfigurationError{Field: "max_document_bytes", Value: c.maxDocumentBytes, Reason: "must not be negative"}
	}

	if c.stemmer != "" {
		if _, err := snowball.Stem("probe", c.stemmer, true); err != nil {
			return &ConfigurationError{Field: "stemmer", Value: c.stemmer, Reason: err.Error()}
		}
	}

	return nil
}

func (c Config) NFeatures() int { return c.nFeatures }
func (c Config) Norm() Norm { return c.norm }
func (c Config) AlternateSign() bool { return c.alternateSign }
func (c Config) Dtype() Dtype { return c.dtype }
func (c Config) NJobs() int { return c.nJobs }
func (c Config) Lowercase() bool { return c.lowercase }
func (c Config) StripAccents() AccentMode { return c.stripAccents }
func (c Config) TokenPattern() string { return c.tokenPattern }
func (c Config) NgramRange() (int, int) { return c.ngramMin, c.ngramMax }
func (c Config) Stemmer() string { return c.stemmer }
func (c Config) Binary() bool { return c.binary }
func (c Config) MaxDocumentBytes() int { return c.maxDocumentBytes }

// StopWords returns a sorted copy of the configured stop words.
func (c Config) StopWords() []string {
	words := make([]string, 0, len(c.stopWords))
	for w := range c.stopWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// AnalyzerSignature identifies the token stream the analyzer produces. Two
// configs with the same signature tokenize every document identically.
func (c Config) AnalyzerSignature() string {
	stop := strings.Join(c.StopWords(), "\x00")
	return fmt.Sprintf("lowercase=%t accents=%s pattern=%q ngram=%d-%d stemmer=%q stop=%d:%08x",
		c.lowercase, c.stripAccents, c.tokenPattern, c.ngramMin, c.ngramMax, c.stemmer,
		len(c.stopWords), murmur3.Sum32([]byte(stop)))
}
