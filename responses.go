package main

import (
	"github.com/hickeroar/parahash/bayes/category"
	"github.com/hickeroar/parahash/sparse"
)

// TrainingClassifierResponse reports the outcome of a model mutation.
type TrainingClassifierResponse struct {
	Success    bool     `json:"success"`
	Categories []string `json:"categories"`
}

// NewTrainingClassifierResponse assembles a TrainingClassifierResponse.
func NewTrainingClassifierResponse(c *ClassifierAPI, success bool) *TrainingClassifierResponse {
	categories := c.classifier.Categories()
	if categories == nil {
		categories = []string{}
	}
	return &TrainingClassifierResponse{
		Success:    success,
		Categories: categories,
	}
}

// VectorizerInfo describes the vectorizer configuration.
type VectorizerInfo struct {
	NFeatures     int    `json:"n_features"`
	NJobs         int    `json:"n_jobs"`
	Norm          string `json:"norm"`
	AlternateSign bool   `json:"alternate_sign"`
	Stemmer       string `json:"stemmer,omitempty"`
}

// InfoClassifierResponse describes the trained model and the vectorizer.
type InfoClassifierResponse struct {
	Categories map[string]category.Summary `json:"categories"`
	Vectorizer VectorizerInfo              `json:"vectorizer"`
}

// NewInfoClassifierResponse assembles an InfoClassifierResponse.
func NewInfoClassifierResponse(c *ClassifierAPI) *InfoClassifierResponse {
	cfg := c.vectorizer.Config()
	return &InfoClassifierResponse{
		Categories: c.classifier.Summaries(),
		Vectorizer: VectorizerInfo{
			NFeatures:     cfg.NFeatures(),
			NJobs:         cfg.NJobs(),
			Norm:          cfg.Norm().String(),
			AlternateSign: cfg.AlternateSign(),
			Stemmer:       cfg.Stemmer(),
		},
	}
}

// VectorizeRequest is the body accepted by /vectorize.
type VectorizeRequest struct {
	Documents []string `json:"documents"`
}

// MatrixResponse is the CSR form of a feature matrix.
type MatrixResponse struct {
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Indptr  []int     `json:"indptr"`
	Indices []int     `json:"indices"`
	Data    []float64 `json:"data"`
}

// NewMatrixResponse converts m to its wire form.
func NewMatrixResponse(m *sparse.Matrix) *MatrixResponse {
	return &MatrixResponse{
		Rows:    m.Rows(),
		Cols:    m.Cols(),
		Indptr:  m.Indptr(),
		Indices: m.Indices(),
		Data:    m.Data(),
	}
}
