package store

import (
	"context"
	"errors"
	"testing"

	"github.com/datapeak/backend/pkg/common"
)

type fakeGraphWriter struct {
	nodes  map[common.EntityKey]int64
	edges  []ResolvedEdge
	nextID int64
}

func (w *fakeGraphWriter) DeleteGraph(_ context.Context) error {
	w.nodes = map[common.EntityKey]int64{}
	w.edges = nil
	return nil
}

func (w *fakeGraphWriter) InsertNodes(_ context.Context, entities []common.Entity) (map[common.EntityKey]int64, error) {
	lookup := make(map[common.EntityKey]int64, len(entities))
	for _, entity := range entities {
		w.nextID++
		w.nodes[entity.Key] = w.nextID
		lookup[entity.Key] = w.nextID
	}
	return lookup, nil
}

func (w *fakeGraphWriter) InsertEdges(_ context.Context, edges []ResolvedEdge) error {
	w.edges = append(w.edges, edges...)
	return nil
}

func TestReplaceGraph(t *testing.T) {
	ctx := context.Background()
	alice := common.EntityKey{Field: "customer_name", Value: "Alice"}
	berlin := common.EntityKey{Field: "city", Value: "Berlin"}
	entities := []common.Entity{
		{Key: alice, Type: "person", Name: "Alice", Occurrences: 2},
		{Key: berlin, Type: "location", Name: "Berlin", Occurrences: 2},
	}
	edges := []common.Edge{
		{Source: alice, Target: berlin, Type: common.RelationCoOccurs, Weight: 1, OccurrenceCount: 2},
	}

	t.Run("rebuild replaces instead of appending", func(t *testing.T) {
		w := &fakeGraphWriter{}

		first, _, err := ReplaceGraph(ctx, w, entities, edges)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, _, err := ReplaceGraph(ctx, w, entities, edges)
		if err != nil {
			t.Fatalf("unexpected error on rebuild: %v", err)
		}

		if len(w.nodes) != len(entities) {
			t.Fatalf("expected %d nodes after rebuild, got %d", len(entities), len(w.nodes))
		}
		if len(w.edges) != len(edges) {
			t.Fatalf("expected %d edges after rebuild, got %d", len(edges), len(w.edges))
		}
		if first != second {
			t.Fatalf("rebuild summary diverged: first %+v, second %+v", first, second)
		}
	})

	t.Run("edges referencing unknown keys are dropped", func(t *testing.T) {
		w := &fakeGraphWriter{}
		ghost := common.EntityKey{Field: "city", Value: "Atlantis"}
		withGhost := append(edges, common.Edge{Source: alice, Target: ghost, Type: common.RelationCoOccurs})

		summary, dropped, err := ReplaceGraph(ctx, w, entities, withGhost)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dropped != 1 {
			t.Fatalf("expected 1 dropped edge, got %d", dropped)
		}
		if summary.EdgesCreated != 1 {
			t.Fatalf("expected 1 created edge, got %d", summary.EdgesCreated)
		}
	})
}

type fakeRecordWriter struct {
	stored      []common.Record
	chunkCalls  int
	failOnChunk int // 1-based call index that fails once, 0 disables
}

func (w *fakeRecordWriter) DeleteRecords(_ context.Context) error {
	w.stored = nil
	return nil
}

func (w *fakeRecordWriter) InsertRecordChunk(_ context.Context, records []common.Record) (int, error) {
	w.chunkCalls++
	if w.chunkCalls == w.failOnChunk {
		return 0, errors.New("connection reset")
	}
	w.stored = append(w.stored, records...)
	return len(records), nil
}

func TestReplaceRecords(t *testing.T) {
	ctx := context.Background()
	records := make([]common.Record, 5)
	for i := range records {
		records[i] = common.Record{"row": float64(i)}
	}

	t.Run("retry after partial failure does not duplicate rows", func(t *testing.T) {
		w := &fakeRecordWriter{failOnChunk: 2}

		if _, err := ReplaceRecords(ctx, w, records, 2); err == nil {
			t.Fatal("expected the first attempt to fail")
		}
		if len(w.stored) == 0 {
			t.Fatal("first attempt should have persisted its leading chunk")
		}

		inserted, err := ReplaceRecords(ctx, w, records, 2)
		if err != nil {
			t.Fatalf("unexpected error on retry: %v", err)
		}
		if inserted != len(records) {
			t.Fatalf("expected %d inserted rows, got %d", len(records), inserted)
		}
		if len(w.stored) != len(records) {
			t.Fatalf("expected %d stored rows after retry, got %d", len(records), len(w.stored))
		}
	})

	t.Run("re-ingesting the same file replaces its rows", func(t *testing.T) {
		w := &fakeRecordWriter{}

		for i := 0; i < 2; i++ {
			if _, err := ReplaceRecords(ctx, w, records, 2); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if len(w.stored) != len(records) {
			t.Fatalf("expected %d stored rows, got %d", len(records), len(w.stored))
		}
	})

	t.Run("empty dataset clears previous rows", func(t *testing.T) {
		w := &fakeRecordWriter{stored: records}

		inserted, err := ReplaceRecords(ctx, w, nil, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inserted != 0 || len(w.stored) != 0 {
			t.Fatalf("expected empty store, got %d inserted, %d stored", inserted, len(w.stored))
		}
	})
}
