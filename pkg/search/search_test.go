package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/datapeak/backend/pkg/common"
)

type fakeStore struct {
	entries     []common.KnowledgeEntry
	insights    []common.Insight
	failTokens  map[string]bool
	failInsight bool
}

func (f *fakeStore) FindEntriesByToken(ctx context.Context, _ string, token string, limit int) ([]common.KnowledgeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failTokens[token] {
		return nil, errors.New("store unavailable")
	}
	matched := make([]common.KnowledgeEntry, 0)
	for _, e := range f.entries {
		if len(matched) == limit {
			break
		}
		if entryMatchesToken(e, token) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (f *fakeStore) FindInsights(_ context.Context, _ string, query string, limit int) ([]common.Insight, error) {
	if f.failInsight {
		return nil, errors.New("store unavailable")
	}
	matched := make([]common.Insight, 0)
	q := strings.ToLower(query)
	for _, in := range f.insights {
		if len(matched) == limit {
			break
		}
		if strings.Contains(strings.ToLower(in.Title), q) || strings.Contains(strings.ToLower(in.Description), q) {
			matched = append(matched, in)
		}
	}
	return matched, nil
}

func entryMatchesToken(e common.KnowledgeEntry, token string) bool {
	if strings.Contains(strings.ToLower(e.Title), token) || strings.Contains(strings.ToLower(e.Content), token) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.EqualFold(tag, token) {
			return true
		}
	}
	return false
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercases and splits",
			query: "Sales Growth Report",
			want:  []string{"sales", "growth", "report"},
		},
		{
			name:  "drops short tokens",
			query: "go to the market",
			want:  []string{"the", "market"},
		},
		{
			name:  "collapses whitespace",
			query: "  revenue \t trends  ",
			want:  []string{"revenue", "trends"},
		},
		{
			name:  "all tokens too short",
			query: "a b c",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Tokenize(%q) = %v, want %v", tt.query, got, tt.want)
				}
			}
		})
	}
}

func TestScoreEntry(t *testing.T) {
	query := "sales growth"
	tokens := Tokenize(query)

	t.Run("title boost outweighs stored relevance", func(t *testing.T) {
		boosted := common.KnowledgeEntry{
			ID:             "1",
			Title:          "Sales Growth",
			RelevanceScore: 0.5,
			Tags:           []string{"sales"},
		}
		plain := common.KnowledgeEntry{
			ID:             "2",
			Title:          "Other",
			RelevanceScore: 0.9,
		}

		if ScoreEntry(boosted, query, tokens) <= ScoreEntry(plain, query, tokens) {
			t.Fatal("title-matching entry must outrank entry with higher stored relevance")
		}
	})

	t.Run("exact component values", func(t *testing.T) {
		entry := common.KnowledgeEntry{
			ID:             "1",
			Title:          "Quarterly Sales Growth",
			Content:        "growth picked up in Q3",
			RelevanceScore: 0.4,
			Tags:           []string{"sales", "finance"},
		}

		// 0.4 stored + 0.5 title + 0.2 for the one matching tag
		// + 0.3 * (1 of 2 tokens found in content).
		want := 0.4 + TitleMatchBoost + TagMatchBoost*1 + ContentMatchBoost*0.5
		got := ScoreEntry(entry, query, tokens)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("ScoreEntry = %g, want %g", got, want)
		}
	})

	t.Run("missing stored relevance defaults to zero", func(t *testing.T) {
		entry := common.KnowledgeEntry{ID: "1", Title: "untouched"}
		if got := ScoreEntry(entry, query, tokens); got != 0 {
			t.Fatalf("expected zero score, got %g", got)
		}
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty query", func(t *testing.T) {
		ranker := NewRanker(&fakeStore{})
		if _, err := ranker.Search(ctx, "user-1", "   "); !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("ranks title match first and deduplicates", func(t *testing.T) {
		store := &fakeStore{
			entries: []common.KnowledgeEntry{
				{ID: "1", Title: "Sales Growth", RelevanceScore: 0.5, Tags: []string{"sales"}},
				{ID: "2", Title: "Other sales growth notes", RelevanceScore: 0.9},
			},
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "sales growth")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Both entries match both tokens but must appear once each.
		if result.TotalFound != 2 {
			t.Fatalf("expected total_found 2, got %d", result.TotalFound)
		}
		if len(result.KnowledgeResults) != 2 {
			t.Fatalf("expected 2 results, got %d", len(result.KnowledgeResults))
		}
		if result.KnowledgeResults[0].ID != "1" {
			t.Fatalf("expected title-boosted entry first, got %q", result.KnowledgeResults[0].ID)
		}
		if got := result.SearchTerms; len(got) != 2 || got[0] != "sales" || got[1] != "growth" {
			t.Fatalf("unexpected search terms: %v", got)
		}
	})

	t.Run("truncates to ten results but counts all", func(t *testing.T) {
		store := &fakeStore{}
		for i := 0; i < 15; i++ {
			store.entries = append(store.entries, common.KnowledgeEntry{
				ID:             string(rune('a' + i)),
				Title:          "revenue report",
				RelevanceScore: float64(i) / 100,
			})
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "revenue")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalFound != 10 {
			// The fake store caps candidates at 10 per token, same as the
			// real store contract, so dedup yields 10.
			t.Fatalf("expected total_found 10, got %d", result.TotalFound)
		}
		if len(result.KnowledgeResults) > 10 {
			t.Fatalf("results must be capped at 10, got %d", len(result.KnowledgeResults))
		}
	})

	t.Run("failed token query is skipped", func(t *testing.T) {
		store := &fakeStore{
			entries: []common.KnowledgeEntry{
				{ID: "1", Title: "growth dashboard", RelevanceScore: 0.3},
			},
			failTokens: map[string]bool{"sales": true},
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "sales growth")
		if err != nil {
			t.Fatalf("per-token failures must not surface: %v", err)
		}
		if len(result.KnowledgeResults) != 1 {
			t.Fatalf("expected the surviving token's result, got %d", len(result.KnowledgeResults))
		}
	})

	t.Run("all tokens failing returns empty result", func(t *testing.T) {
		store := &fakeStore{
			entries:    []common.KnowledgeEntry{{ID: "1", Title: "sales growth"}},
			failTokens: map[string]bool{"sales": true, "growth": true},
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "sales growth")
		if err != nil {
			t.Fatalf("expected empty result, not error: %v", err)
		}
		if result.TotalFound != 0 || len(result.KnowledgeResults) != 0 {
			t.Fatalf("expected empty result set, got %+v", result)
		}
	})

	t.Run("insight failure does not block knowledge results", func(t *testing.T) {
		store := &fakeStore{
			entries:     []common.KnowledgeEntry{{ID: "1", Title: "sales growth", RelevanceScore: 0.2}},
			failInsight: true,
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "sales")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.KnowledgeResults) != 1 {
			t.Fatalf("expected knowledge results despite insight failure, got %d", len(result.KnowledgeResults))
		}
		if len(result.InsightResults) != 0 {
			t.Fatalf("expected empty insights, got %d", len(result.InsightResults))
		}
	})

	t.Run("cancelled context surfaces instead of being swallowed", func(t *testing.T) {
		store := &fakeStore{
			entries: []common.KnowledgeEntry{{ID: "1", Title: "sales growth"}},
		}
		ranker := NewRanker(store)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := ranker.Search(cancelled, "user-1", "sales growth"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("insights are returned alongside results", func(t *testing.T) {
		store := &fakeStore{
			entries: []common.KnowledgeEntry{{ID: "1", Title: "churn analysis", RelevanceScore: 0.2}},
			insights: []common.Insight{
				{ID: "i1", Title: "churn spike detected", ConfidenceScore: 0.8},
			},
		}
		ranker := NewRanker(store)

		result, err := ranker.Search(ctx, "user-1", "churn")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.InsightResults) != 1 || result.InsightResults[0].ID != "i1" {
			t.Fatalf("unexpected insights: %+v", result.InsightResults)
		}
	})
}
