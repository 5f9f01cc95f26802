package evaluate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/studystack/campusrag/internal/retriever"
)

// QueryResult holds the metrics for a single evaluated query.
type QueryResult struct {
	Query            string
	RetrievedSources []string
	Recall           float64
	ReciprocalRank   float64
	KeywordsFound    int
	TotalKeywords    int
	Latency          time.Duration
	Err              error
}

// Report aggregates metrics across an evaluation run.
type Report struct {
	TotalQueries       int
	AvgRecall          float64
	AvgMRR             float64
	AvgKeywordCoverage float64
	AvgLatency         time.Duration
	Results            []QueryResult
}

// Evaluator measures retrieval quality against a labeled sample set.
type Evaluator struct {
	retriever *retriever.Retriever
}

// New creates an Evaluator over the given retriever.
func New(ret *retriever.Retriever) *Evaluator {
	return &Evaluator{retriever: ret}
}

// Run evaluates every sample and aggregates the results. A failed query
// scores zero on all metrics rather than aborting the run.
func (e *Evaluator) Run(ctx context.Context, samples []Sample) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no evaluation samples")
	}

	report := &Report{TotalQueries: len(samples)}
	for _, sample := range samples {
		result := e.evaluateQuery(ctx, sample)
		report.Results = append(report.Results, result)

		report.AvgRecall += result.Recall
		report.AvgMRR += result.ReciprocalRank
		report.AvgLatency += result.Latency
		if result.TotalKeywords > 0 {
			report.AvgKeywordCoverage += float64(result.KeywordsFound) / float64(result.TotalKeywords)
		}
	}

	n := float64(len(samples))
	report.AvgRecall /= n
	report.AvgMRR /= n
	report.AvgKeywordCoverage /= n
	report.AvgLatency /= time.Duration(len(samples))

	return report, nil
}

func (e *Evaluator) evaluateQuery(ctx context.Context, sample Sample) QueryResult {
	result := QueryResult{
		Query:         sample.Query,
		TotalKeywords: len(sample.ExpectedKeywords),
	}

	var calls []retriever.CallOption
	if sample.Category != "" {
		calls = append(calls, retriever.WithCategory(sample.Category))
	}

	start := time.Now()
	hits, err := e.retriever.Retrieve(ctx, sample.Query, calls...)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}

	var content strings.Builder
	for _, hit := range hits {
		result.RetrievedSources = append(result.RetrievedSources, hit.Chunk.Meta.SourcePath)
		content.WriteString(hit.Chunk.Content)
		content.WriteString(" ")
	}

	result.Recall = recall(result.RetrievedSources, sample.ExpectedSources)
	result.ReciprocalRank = reciprocalRank(result.RetrievedSources, sample.ExpectedSources)
	result.KeywordsFound = countKeywords(content.String(), sample.ExpectedKeywords)

	return result
}

// recall is the fraction of expected sources that appear anywhere in the
// retrieved list. Matching is case-insensitive substring match, so a label
// like "regulations/academic" matches any path containing it.
func recall(retrieved, expected []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	matches := 0
	for _, exp := range expected {
		if rankOf(retrieved, exp) > 0 {
			matches++
		}
	}
	return float64(matches) / float64(len(expected))
}

// reciprocalRank is 1/rank of the first retrieved source matching any
// expected source, or 0 when none match.
func reciprocalRank(retrieved, expected []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	best := 0
	for _, exp := range expected {
		if rank := rankOf(retrieved, exp); rank > 0 && (best == 0 || rank < best) {
			best = rank
		}
	}
	if best == 0 {
		return 0
	}
	return 1.0 / float64(best)
}

func rankOf(retrieved []string, expected string) int {
	expected = strings.ToLower(expected)
	for i, ret := range retrieved {
		if strings.Contains(strings.ToLower(ret), expected) {
			return i + 1
		}
	}
	return 0
}

func countKeywords(content string, keywords []string) int {
	content = strings.ToLower(content)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(content, strings.ToLower(kw)) {
			found++
		}
	}
	return found
}

// Format renders the report as human-readable text.
func (r *Report) Format() string {
	var sb strings.Builder

	sb.WriteString("Evaluation Report\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&sb, "Queries:          %d\n", r.TotalQueries)
	fmt.Fprintf(&sb, "Recall@K:         %.1f%%\n", r.AvgRecall*100)
	fmt.Fprintf(&sb, "MRR:              %.1f%%\n", r.AvgMRR*100)
	fmt.Fprintf(&sb, "Keyword coverage: %.1f%%\n", r.AvgKeywordCoverage*100)
	fmt.Fprintf(&sb, "Avg latency:      %s\n", r.AvgLatency.Round(time.Millisecond))

	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for i, res := range r.Results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, res.Query)
		if res.Err != nil {
			fmt.Fprintf(&sb, "   error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(&sb, "   recall %.2f | mrr %.2f | keywords %d/%d | %s\n",
			res.Recall, res.ReciprocalRank, res.KeywordsFound, res.TotalKeywords,
			res.Latency.Round(time.Millisecond))
		if len(res.RetrievedSources) > 0 {
			limit := len(res.RetrievedSources)
			if limit > 3 {
				limit = 3
			}
			fmt.Fprintf(&sb, "   sources: %s\n", strings.Join(res.RetrievedSources[:limit], ", "))
		}
	}

	return sb.String()
}

// Passed reports whether the run meets the quality bar used in CI.
func (r *Report) Passed() bool {
	return r.AvgRecall >= 0.7 && r.AvgMRR >= 0.6
}
