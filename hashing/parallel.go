package hashing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hickeroar/parahash/parallel"
	"github.com/hickeroar/parahash/sparse"
)

// ParallelVectorizer splits a batch into NJobs balanced contiguous chunks,
// transforms the chunks concurrently and stacks the results in input order.
type ParallelVectorizer struct {
	cfg Config
	bt  BatchTransform
	log *logrus.Entry
}

// ParallelOption adjusts a ParallelVectorizer under construction.
type ParallelOption func(*ParallelVectorizer)

// WithBatchTransform replaces the per-chunk transform.
func WithBatchTransform(bt BatchTransform) ParallelOption {
	return func(p *ParallelVectorizer) { p.bt = bt }
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(log *logrus.Entry) ParallelOption {
	return func(p *ParallelVectorizer) { p.log = log }
}

// NewParallelVectorizer validates cfg and returns a vectorizer that runs the
// per-chunk transform on up to cfg.NJobs() goroutines.
func NewParallelVectorizer(cfg Config, opts ...ParallelOption) (*ParallelVectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &ParallelVectorizer{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.bt == nil {
		v, err := NewVectorizer(cfg)
		if err != nil {
			return nil, err
		}
		p.bt = v
	}
	if got := p.bt.NFeatures(); got != cfg.nFeatures {
		return nil, &ConfigurationError{Field: "batch transform n_features", Value: got, Reason: fmt.Sprintf("must equal %d", cfg.nFeatures)}
	}
	if p.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		p.log = logrus.NewEntry(discard)
	}

	return p, nil
}

// NFeatures returns the output column count.
func (p *ParallelVectorizer) NFeatures() int {
	return p.cfg.nFeatures
}

// Config returns the vectorizer configuration.
func (p *ParallelVectorizer) Config() Config {
	return p.cfg
}

type chunk struct {
	index  int
	offset int
	docs   []string
}

// Transform returns a len(docs) x NFeatures matrix whose row i is the
// feature vector of docs[i]. If any chunk fails, the remaining chunks are
// cancelled and the failure is returned as *ExternalTransformError.
func (p *ParallelVectorizer) Transform(ctx context.Context, docs []string) (*sparse.Matrix, error) {
	if p == nil || p.bt == nil {
		return nil, &ConfigurationError{Field: "batch transform", Value: nil, Reason: "vectorizer not constructed with NewParallelVectorizer"}
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return sparse.Empty(p.cfg.nFeatures), nil
	}

	var chunks []chunk
	offset := 0
	for i, group := range parallel.Split(docs, p.cfg.nJobs) {
		if len(group) > 0 {
			chunks = append(chunks, chunk{index: i, offset: offset, docs: group})
		}
		offset += len(group)
	}

	start := time.Now()
	parts, err := parallel.Map(ctx, chunks, p.cfg.nJobs, p.transformChunk)
	if err != nil {
		p.log.WithError(err).WithField("documents", len(docs)).Warn("parallel transform failed")
		return nil, err
	}

	out, err := sparse.VStack(parts...)
	if err != nil {
		return nil, fmt.Errorf("stack chunk matrices: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"documents": len(docs),
		"chunks":    len(chunks),
		"nnz":       out.NNZ(),
		"elapsed":   time.Since(start),
	}).Debug("parallel transform complete")

	return out, nil
}

func (p *ParallelVectorizer) transformChunk(ctx context.Context, _ int, c chunk) (*sparse.Matrix, error) {
	m, err := p.safeTransform(ctx, c.docs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, &ExternalTransformError{Chunk: c.index, Offset: c.offset, Size: len(c.docs), Err: err}
	}
	if m == nil || m.Rows() != len(c.docs) || m.Cols() != p.cfg.nFeatures {
		var rows, cols int
		if m != nil {
			rows, cols = m.Rows(), m.Cols()
		}
		return nil, &ExternalTransformError{
			Chunk:  c.index,
			Offset: c.offset,
			Size:   len(c.docs),
			Err:    fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShape, rows, cols, len(c.docs), p.cfg.nFeatures),
		}
	}
	return m, nil
}

// safeTransform runs the batch transform and turns a panic into an error so
// one chunk cannot take down the process.
func (p *ParallelVectorizer) safeTransform(ctx context.Context, docs []string) (m *sparse.Matrix, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("%w: %v", ErrTransformPanic, r)
		}
	}()
	return p.bt.Transform(ctx, docs)
}
