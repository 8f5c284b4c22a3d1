package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// Outcome records which branch produced a resolution.
type Outcome string

const (
	OutcomeEmpty    Outcome = "empty"
	OutcomeLiteral  Outcome = "literal"
	OutcomeLLM      Outcome = "llm"
	OutcomeFallback Outcome = "fallback"
)

// Resolution is the merged filter set for one settled input.
type Resolution struct {
	Filters models.SearchFilters `json:"filters"`
	Outcome Outcome              `json:"outcome"`
}

// OutcomeRecorder counts resolutions by outcome.
type OutcomeRecorder interface {
	RecordSearchResolution(outcome string)
}

// Resolver merges free-text extraction with the explicit category selection.
type Resolver struct {
	extractor Extractor
	logger    *zap.Logger
	metrics   OutcomeRecorder
}

// NewResolver constructs a resolver. A nil extractor behaves as unconfigured.
func NewResolver(extractor Extractor, logger *zap.Logger, metrics OutcomeRecorder) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{extractor: extractor, logger: logger, metrics: metrics}
}

// Resolve never fails: extraction problems degrade to a literal keyword search.
func (r *Resolver) Resolve(ctx context.Context, text, category string) Resolution {
	res := r.resolve(ctx, text, category)
	if r.metrics != nil {
		r.metrics.RecordSearchResolution(string(res.Outcome))
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, text, category string) Resolution {
	filters := models.SearchFilters{Category: BaseCategory(category)}

	query := strings.TrimSpace(text)
	if query == "" {
		return Resolution{Filters: filters, Outcome: OutcomeEmpty}
	}

	if r.extractor == nil || !r.extractor.Configured() {
		filters.Search = query
		return Resolution{Filters: filters, Outcome: OutcomeLiteral}
	}

	extracted, err := r.extractor.Extract(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Debug("search extraction cancelled", zap.String("query", query))
		} else {
			r.logger.Error("search extraction failed, using keyword search", zap.String("query", query), zap.Error(err))
		}
		filters.Search = query
		return Resolution{Filters: filters, Outcome: OutcomeFallback}
	}

	filters.Search = extracted.SearchTerm
	if filters.Category == "" {
		filters.Category = extracted.Category
	}
	filters.Status = extracted.Status
	filters.DateRange = extracted.DateRange
	return Resolution{Filters: filters, Outcome: OutcomeLLM}
}

// BaseCategory maps the UI selection to a filter value; "all" and unknown values select nothing.
func BaseCategory(category string) models.Category {
	if category == "" || strings.EqualFold(category, models.CategoryAll) {
		return ""
	}
	c := models.Category(category)
	if !c.Valid() {
		return ""
	}
	return c
}
