// Package hashing turns text documents into fixed-width sparse feature
// matrices with the hashing trick, optionally fanning a batch out over
// several workers.
package hashing

import (
	"context"
	"fmt"

	"github.com/twmb/murmur3"
	"gonum.org/v1/gonum/floats"

	"github.com/hickeroar/parahash/sparse"
)

// BatchTransform maps a batch of documents to a feature matrix with one row
// per document and NFeatures columns. Implementations must be safe to call
// from several goroutines at once.
type BatchTransform interface {
	Transform(ctx context.Context, docs []string) (*sparse.Matrix, error)
	NFeatures() int
}

// Vectorizer hashes each token into one of NFeatures columns. It holds no
// mutable state.
type Vectorizer struct {
	cfg      Config
	analyzer *Analyzer
}

// NewVectorizer returns a single-batch vectorizer for cfg.
func NewVectorizer(cfg Config) (*Vectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Vectorizer{cfg: cfg, analyzer: NewAnalyzer(cfg)}, nil
}

// NFeatures returns the output column count.
func (v *Vectorizer) NFeatures() int {
	return v.cfg.nFeatures
}

// Config returns the vectorizer configuration.
func (v *Vectorizer) Config() Config {
	return v.cfg
}

// Transform hashes docs into a len(docs) x NFeatures matrix.
func (v *Vectorizer) Transform(ctx context.Context, docs []string) (*sparse.Matrix, error) {
	b := sparse.NewBuilder(v.cfg.nFeatures)
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tokens, err := v.analyzer.Analyze(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		for _, tok := range tokens {
			idx, sign := v.hash(tok)
			b.Add(idx, sign)
		}
		b.Scale(v.finishRow)
		b.EndRow()
	}
	return b.Build(), nil
}

// hash maps a token to its column and sign using the signed 32-bit murmur3
// hash with seed 0.
func (v *Vectorizer) hash(token string) (int, float64) {
	h := int64(int32(murmur3.Sum32([]byte(token))))
	sign := 1.0
	if h < 0 {
		h = -h
		if v.cfg.alternateSign {
			sign = -1
		}
	}
	return int(h % int64(v.cfg.nFeatures)), sign
}

func (v *Vectorizer) finishRow(values []float64) {
	if v.cfg.binary {
		for i := range values {
			if values[i] != 0 {
				values[i] = 1
			}
		}
	}

	var n float64
	switch v.cfg.norm {
	case NormL1:
		n = floats.Norm(values, 1)
	case NormL2:
		n = floats.Norm(values, 2)
	}
	if n > 0 {
		floats.Scale(1/n, values)
	}

	if v.cfg.dtype == Float32 {
		for i := range values {
			values[i] = float64(float32(values[i]))
		}
	}
}
