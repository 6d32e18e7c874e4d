package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/logger"
)

// Scoring weights combined with an entry's stored relevance score. The exact
// values are part of the ranking contract and are pinned by tests.
const (
	TitleMatchBoost   = 0.5
	TagMatchBoost     = 0.2
	ContentMatchBoost = 0.3
)

const (
	minTokenLength      = 3
	candidatesPerToken  = 10
	maxKnowledgeResults = 10
	maxInsightResults   = 5
)

// ErrEmptyQuery is returned when the search query is empty or whitespace-only.
var ErrEmptyQuery = errors.New("search query must not be empty")

// KnowledgeStorage is the read-only store surface the ranker depends on.
type KnowledgeStorage interface {
	// FindEntriesByToken returns up to limit entries owned by the user whose
	// title, content, or tags match the token, ordered by stored relevance
	// score descending.
	FindEntriesByToken(ctx context.Context, userID, token string, limit int) ([]common.KnowledgeEntry, error)

	// FindInsights returns up to limit insights owned by the user whose title
	// or description contains the raw query, ordered by confidence descending.
	FindInsights(ctx context.Context, userID, query string, limit int) ([]common.Insight, error)
}

// Result is the full response of one search invocation. TotalFound counts the
// deduplicated scored entries before truncation to the result cap.
type Result struct {
	KnowledgeResults []common.ScoredEntry `json:"knowledge_results"`
	InsightResults   []common.Insight     `json:"insight_results"`
	TotalFound       int                  `json:"total_found"`
	SearchTerms      []string             `json:"search_terms"`
}

// Ranker retrieves knowledge entries by token match and ranks them with a
// composite relevance score.
type Ranker struct {
	store KnowledgeStorage
}

func NewRanker(store KnowledgeStorage) *Ranker {
	return &Ranker{store: store}
}

// Tokenize lowercases the query, splits it on whitespace, and keeps tokens
// longer than two characters.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ScoreEntry computes the composite relevance of an entry for a query:
// the stored relevance score, plus a boost when the whole query is a
// substring of the title, plus a boost per tag matching any query token,
// plus a boost proportional to how many tokens appear in the content.
func ScoreEntry(entry common.KnowledgeEntry, query string, tokens []string) float64 {
	score := entry.RelevanceScore

	loweredQuery := strings.ToLower(strings.TrimSpace(query))
	if loweredQuery != "" && strings.Contains(strings.ToLower(entry.Title), loweredQuery) {
		score += TitleMatchBoost
	}

	matchingTags := 0
	for _, tag := range entry.Tags {
		loweredTag := strings.ToLower(tag)
		for _, token := range tokens {
			if strings.Contains(loweredTag, token) {
				matchingTags++
				break
			}
		}
	}
	score += TagMatchBoost * float64(matchingTags)

	if len(tokens) > 0 {
		loweredContent := strings.ToLower(entry.Content)
		found := 0
		for _, token := range tokens {
			if strings.Contains(loweredContent, token) {
				found++
			}
		}
		score += ContentMatchBoost * float64(found) / float64(len(tokens))
	}

	return score
}

// Search runs one ranked knowledge search for the user. Candidate retrieval
// fans out per token; a failed token query is skipped and simply contributes
// no candidates. Insight retrieval is independent and its failure never
// blocks the knowledge results.
func (r *Ranker) Search(ctx context.Context, userID, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	tokens := Tokenize(query)

	var mutex sync.Mutex
	candidates := make([]common.KnowledgeEntry, 0)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, token := range tokens {
		eg.Go(func() error {
			entries, err := r.store.FindEntriesByToken(egCtx, userID, token, candidatesPerToken)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("[Search] Token query failed, skipping", "token", token, "err", err)
				return nil
			}
			mutex.Lock()
			defer mutex.Unlock()
			candidates = append(candidates, entries...)
			return nil
		})
	}
	// Token failures are logged and skipped above; only cancellation
	// surfaces from Wait.
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	scored := rankCandidates(candidates, query, tokens)
	totalFound := len(scored)
	if len(scored) > maxKnowledgeResults {
		scored = scored[:maxKnowledgeResults]
	}

	insights, err := r.store.FindInsights(ctx, userID, query, maxInsightResults)
	if err != nil {
		logger.Warn("[Search] Insight query failed, returning knowledge results only", "err", err)
		insights = []common.Insight{}
	}
	if insights == nil {
		insights = []common.Insight{}
	}

	return &Result{
		KnowledgeResults: scored,
		InsightResults:   insights,
		TotalFound:       totalFound,
		SearchTerms:      tokens,
	}, nil
}

// rankCandidates deduplicates candidates by entry id, scores them, and sorts
// descending by computed relevance. Last-seen-wins on duplicate ids is fine
// because entry fields are immutable per id.
func rankCandidates(candidates []common.KnowledgeEntry, query string, tokens []string) []common.ScoredEntry {
	deduped := make(map[string]common.KnowledgeEntry, len(candidates))
	for _, entry := range candidates {
		deduped[entry.ID] = entry
	}

	scored := make([]common.ScoredEntry, 0, len(deduped))
	for _, entry := range deduped {
		scored = append(scored, common.ScoredEntry{
			KnowledgeEntry:      entry,
			CalculatedRelevance: ScoreEntry(entry, query, tokens),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].CalculatedRelevance != scored[j].CalculatedRelevance {
			return scored[i].CalculatedRelevance > scored[j].CalculatedRelevance
		}
		return scored[i].ID < scored[j].ID
	})

	return scored
}
