package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/gettogather-api/internal/models"
)

type stubExtractor struct {
	mu         sync.Mutex
	configured bool
	result     Extraction
	err        error
	queries    []string
}

func (s *stubExtractor) Configured() bool { return s.configured }

func (s *stubExtractor) Extract(_ context.Context, query string) (Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.result, s.err
}

func (s *stubExtractor) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) RecordSearchResolution(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[outcome]++
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		extractor Extractor
		text      string
		category  string
		want      models.SearchFilters
		outcome   Outcome
	}{
		{
			name:     "empty text keeps only the category",
			text:     "  ",
			category: "Sports",
			want:     models.SearchFilters{Category: models.CategorySports},
			outcome:  OutcomeEmpty,
		},
		{
			name:     "all selects no category",
			category: "all",
			want:     models.SearchFilters{},
			outcome:  OutcomeEmpty,
		},
		{
			name:      "unconfigured model searches literally",
			extractor: &stubExtractor{},
			text:      "annual day",
			category:  "all",
			want:      models.SearchFilters{Search: "annual day"},
			outcome:   OutcomeLiteral,
		},
		{
			name:     "nil extractor searches literally",
			text:     "annual day",
			category: "Cultural",
			want:     models.SearchFilters{Search: "annual day", Category: models.CategoryCultural},
			outcome:  OutcomeLiteral,
		},
		{
			name:      "ui category beats extracted category",
			extractor: &stubExtractor{configured: true, result: Extraction{SearchTerm: "fest", Category: models.CategoryCultural}},
			text:      "cultural fest",
			category:  "Technology",
			want:      models.SearchFilters{Search: "fest", Category: models.CategoryTechnology},
			outcome:   OutcomeLLM,
		},
		{
			name:      "extracted category fills all",
			extractor: &stubExtractor{configured: true, result: Extraction{Category: models.CategoryTechnology, DateRange: models.DateRangeNextWeek}},
			text:      "hackathons next week",
			category:  "all",
			want:      models.SearchFilters{Category: models.CategoryTechnology, DateRange: models.DateRangeNextWeek},
			outcome:   OutcomeLLM,
		},
		{
			name:      "status is taken from the extraction",
			extractor: &stubExtractor{configured: true, result: Extraction{Category: models.CategoryCultural, Status: models.EventStatusUpcoming}},
			text:      "upcoming cultural festivals",
			want:      models.SearchFilters{Category: models.CategoryCultural, Status: models.EventStatusUpcoming},
			outcome:   OutcomeLLM,
		},
		{
			name:      "failure falls back to literal search",
			extractor: &stubExtractor{configured: true, err: errors.New("timeout")},
			text:      "robotics",
			category:  "Academic",
			want:      models.SearchFilters{Search: "robotics", Category: models.CategoryAcademic},
			outcome:   OutcomeFallback,
		},
		{
			name:     "unknown ui category is ignored",
			text:     "",
			category: "Music",
			want:     models.SearchFilters{},
			outcome:  OutcomeEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &outcomeCounter{}
			r := NewResolver(tt.extractor, nil, counter)

			res := r.Resolve(context.Background(), tt.text, tt.category)
			assert.Equal(t, tt.want, res.Filters)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, 1, counter.counts[string(tt.outcome)])
		})
	}
}

func TestResolveSkipsExtractorForEmptyText(t *testing.T) {
	stub := &stubExtractor{configured: true}
	NewResolver(stub, nil, nil).Resolve(context.Background(), "", "all")
	assert.Empty(t, stub.calls())
}
