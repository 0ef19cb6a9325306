package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)
	return NewAnalyzer(cfg)
}

func TestAnalyzeDefaultTokenization(t *testing.T) {
	a := newAnalyzer(t)

	tokens, err := a.Analyze("Buy NOW, a free_prize! 42 x")
	require.NoError(t, err)
	assert.Equal(t, []string{"buy", "now", "free_prize", "42"}, tokens)
}

func TestAnalyzeKeepsCaseWhenLowercaseOff(t *testing.T) {
	a := newAnalyzer(t, WithLowercase(false))

	tokens, err := a.Analyze("Hello World")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "World"}, tokens)
}

func TestAnalyzeStripAccents(t *testing.T) {
	unicodeMode := newAnalyzer(t, WithStripAccents(AccentsUnicode))
	tokens, err := unicodeMode.Analyze("café naïve Ωmega")
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe", "naive", "ωmega"}, tokens)

	asciiMode := newAnalyzer(t, WithStripAccents(AccentsASCII))
	tokens, err = asciiMode.Analyze("café naïve Ωmega")
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe", "naive", "mega"}, tokens)

	none := newAnalyzer(t)
	tokens, err = none.Analyze("café")
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, tokens)
}

func TestAnalyzeStopWordsAndNgrams(t *testing.T) {
	a := newAnalyzer(t, WithEnglishStopWords(), WithNgramRange(1, 2))

	tokens, err := a.Analyze("see you at the party later")
	require.NoError(t, err)
	assert.Equal(t, []string{"see", "party", "later", "see party", "party later"}, tokens)
}

func TestAnalyzeNgramsLongerThanDocument(t *testing.T) {
	a := newAnalyzer(t, WithNgramRange(2, 3))

	tokens, err := a.Analyze("single")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestAnalyzeStemming(t *testing.T) {
	a := newAnalyzer(t, WithStemmer("english"))

	tokens, err := a.Analyze("running runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "run"}, tokens)
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	a := newAnalyzer(t, WithMaxDocumentBytes(8))

	_, err := a.Analyze("\xff\xfe")
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	_, err = a.Analyze(strings.Repeat("a", 9))
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	_, err = a.Analyze(strings.Repeat("a", 8))
	assert.NoError(t, err)
}

func TestTokenizerSwallowsErrors(t *testing.T) {
	tok := newAnalyzer(t).Tokenizer()

	assert.Equal(t, []string{"hello", "friend"}, tok("hello friend"))
	assert.Nil(t, tok("\xff"))
}

func FuzzAnalyze(f *testing.F) {
	f.Add("buy now")
	f.Add("café ÑANDÚ 123")
	f.Add("")
	f.Add("\xff")

	cfg, err := NewConfig(WithNgramRange(1, 3), WithStripAccents(AccentsUnicode))
	if err != nil {
		f.Fatal(err)
	}
	a := NewAnalyzer(cfg)

	f.Fuzz(func(t *testing.T, doc string) {
		tokens, err := a.Analyze(doc)
		if err != nil {
			return
		}
		for _, tok := range tokens {
			if tok == "" {
				t.Fatalf("empty token for %q", doc)
			}
		}
	})
}
