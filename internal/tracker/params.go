package tracker

import (
	"encoding/json"
	"fmt"
)

// Job payload kinds. The kind tag is part of the serialized payload, so rows
// written with a tag this build does not know fail decoding instead of being
// misread.
const (
	JobKindSeries = "series"
	JobKindBook   = "book"
)

// JobParams is the typed payload attached to a job: either a full series
// refresh or a single-book release date fetch. Exactly one of Series or Book
// is set on a decoded value.
type JobParams struct {
	Kind   string        `json:"kind"`
	Series *SeriesParams `json:"series,omitempty"`
	Book   *BookParams   `json:"book,omitempty"`
}

// SeriesParams asks for a scrape of a series landing page.
type SeriesParams struct {
	ASIN string `json:"asin"`
}

// BookParams asks for a scrape of a single book's product page. ParentJobID
// points at the series job that cascaded this one.
type BookParams struct {
	ASIN        string `json:"asin"`
	ParentJobID string `json:"parent_job_id"`
}

// NewSeriesParams builds a series refresh payload.
func NewSeriesParams(asin string) JobParams {
	return JobParams{Kind: JobKindSeries, Series: &SeriesParams{ASIN: asin}}
}

// NewBookParams builds a single-book payload cascaded from parentJobID.
func NewBookParams(asin, parentJobID string) JobParams {
	return JobParams{Kind: JobKindBook, Book: &BookParams{ASIN: asin, ParentJobID: parentJobID}}
}

// Encode serializes the payload into its canonical stored form. Enqueue
// de-duplication compares these strings byte for byte, so all callers must go
// through Encode rather than hand-rolling JSON.
func (p JobParams) Encode() (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode job params: %w", err)
	}
	return string(raw), nil
}

// DecodeParams parses a stored payload back into a typed value. A payload
// with an unknown kind or missing variant body is an error; the worker
// records it as the job's failure rather than treating it as fatal.
func DecodeParams(raw string) (JobParams, error) {
	var p JobParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return JobParams{}, fmt.Errorf("decode job params: %w", err)
	}
	if err := p.validate(); err != nil {
		return JobParams{}, err
	}
	return p, nil
}

func (p JobParams) validate() error {
	switch p.Kind {
	case JobKindSeries:
		if p.Series == nil || p.Series.ASIN == "" {
			return fmt.Errorf("series job params missing asin")
		}
	case JobKindBook:
		if p.Book == nil || p.Book.ASIN == "" {
			return fmt.Errorf("book job params missing asin")
		}
	default:
		return fmt.Errorf("unknown job params kind %q", p.Kind)
	}
	return nil
}
