package store

import (
	"testing"

	"github.com/datapeak/backend/pkg/common"
)

func TestResolveEdges(t *testing.T) {
	keyA := common.EntityKey{Field: "customer_name", Value: "Bob Jones"}
	keyB := common.EntityKey{Field: "city", Value: "Boston"}
	keyC := common.EntityKey{Field: "city", Value: "Denver"}

	lookup := map[common.EntityKey]int64{
		keyA: 11,
		keyB: 22,
	}

	edges := []common.Edge{
		{Source: keyA, Target: keyB, Type: common.RelationCoOccurs, Weight: 0.75, OccurrenceCount: 3},
		{Source: keyA, Target: keyC, Type: common.RelationCoOccurs, Weight: 0.25, OccurrenceCount: 1},
	}

	resolved, dropped := ResolveEdges(edges, lookup)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped edge, got %d", dropped)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved edge, got %d", len(resolved))
	}
	if resolved[0].SourceID != 11 || resolved[0].TargetID != 22 {
		t.Fatalf("unexpected node ids: %+v", resolved[0])
	}
	if resolved[0].Weight != 0.75 || resolved[0].OccurrenceCount != 3 {
		t.Fatalf("edge attributes must carry over: %+v", resolved[0])
	}
}

func TestChunkRange(t *testing.T) {
	t.Run("covers the full range", func(t *testing.T) {
		var windows [][2]int
		err := ChunkRange(10, 4, func(start, end int) error {
			windows = append(windows, [2]int{start, end})
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := [][2]int{{0, 4}, {4, 8}, {8, 10}}
		if len(windows) != len(want) {
			t.Fatalf("unexpected windows: %v", windows)
		}
		for i := range want {
			if windows[i] != want[i] {
				t.Fatalf("unexpected windows: %v", windows)
			}
		}
	})

	t.Run("empty range calls nothing", func(t *testing.T) {
		called := false
		_ = ChunkRange(0, 4, func(int, int) error {
			called = true
			return nil
		})
		if called {
			t.Fatal("fn must not be called for an empty range")
		}
	})
}
