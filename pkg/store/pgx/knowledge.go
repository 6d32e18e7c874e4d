package pgx

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/datapeak/backend/internal/util"
	"github.com/datapeak/backend/pkg/common"
)

// FindEntriesByToken returns the user's knowledge entries whose title or
// content contains the token, or whose tags include it, ordered by stored
// relevance score descending.
func (s *Store) FindEntriesByToken(ctx context.Context, userID, token string, limit int) ([]common.KnowledgeEntry, error) {
	// The ILIKE pattern gets the escaped token so % and _ in a query match
	// literally; the tag comparison is plain equality on the raw token.
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, title, content, category, tags, metadata, relevance_score
		FROM knowledge_entries
		WHERE user_id = $1
		  AND (title ILIKE '%' || $2 || '%'
		    OR content ILIKE '%' || $2 || '%'
		    OR $3 = ANY (SELECT lower(t) FROM unnest(tags) AS t))
		ORDER BY relevance_score DESC
		LIMIT $4
	`, userID, util.EscapeLikePattern(token), token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	entries := make([]common.KnowledgeEntry, 0)
	for rows.Next() {
		var entry common.KnowledgeEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Title,
			&entry.Content,
			&entry.Category,
			&entry.Tags,
			&entry.Metadata,
			&entry.RelevanceScore,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindInsights returns the user's insights whose title or description
// contains the raw query, ordered by confidence descending.
func (s *Store) FindInsights(ctx context.Context, userID, query string, limit int) ([]common.Insight, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, title, description, insight_type, confidence_score
		FROM ai_insights
		WHERE user_id = $1
		  AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY confidence_score DESC
		LIMIT $3
	`, userID, util.EscapeLikePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	insights := make([]common.Insight, 0)
	for rows.Next() {
		var insight common.Insight
		if err := rows.Scan(
			&insight.ID,
			&insight.Title,
			&insight.Description,
			&insight.InsightType,
			&insight.ConfidenceScore,
		); err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

// CreateEntry persists a manual knowledge-base entry and returns it with its
// generated public id.
func (s *Store) CreateEntry(ctx context.Context, userID string, entry common.KnowledgeEntry) (common.KnowledgeEntry, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return common.KnowledgeEntry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}
	entry.ID = publicID
	entry.Title = util.SanitizePostgresText(entry.Title)
	entry.Content = util.SanitizePostgresText(entry.Content)
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO knowledge_entries (public_id, user_id, title, content, category, tags, metadata, relevance_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, userID, entry.Title, entry.Content, entry.Category, entry.Tags, entry.Metadata, entry.RelevanceScore)
	if err != nil {
		return common.KnowledgeEntry{}, fmt.Errorf("failed to create knowledge entry: %w", err)
	}
	return entry, nil
}
