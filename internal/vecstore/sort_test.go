package vecstore

import "testing"

func TestSortScored_ScoreDescending(t *testing.T) {
	chunks := []*ScoredChunk{
		{Chunk: &Chunk{Ordinal: 0}, Score: 0.2},
		{Chunk: &Chunk{Ordinal: 1}, Score: 0.9},
		{Chunk: &Chunk{Ordinal: 2}, Score: 0.5},
	}

	SortScored(chunks)

	want := []float64{0.9, 0.5, 0.2}
	for i, sc := range chunks {
		if sc.Score != want[i] {
			t.Errorf("position %d: score %v, want %v", i, sc.Score, want[i])
		}
	}
}

func TestSortScored_TiesBreakByOrdinal(t *testing.T) {
	chunks := []*ScoredChunk{
		{Chunk: &Chunk{Ordinal: 7}, Score: 0.5},
		{Chunk: &Chunk{Ordinal: 2}, Score: 0.5},
		{Chunk: &Chunk{Ordinal: 4}, Score: 0.5},
	}

	SortScored(chunks)

	want := []int{2, 4, 7}
	for i, sc := range chunks {
		if sc.Chunk.Ordinal != want[i] {
			t.Errorf("position %d: ordinal %d, want %d", i, sc.Chunk.Ordinal, want[i])
		}
	}
}

func TestSortScored_Deterministic(t *testing.T) {
	build := func() []*ScoredChunk {
		return []*ScoredChunk{
			{Chunk: &Chunk{Ordinal: 3}, Score: 0.7},
			{Chunk: &Chunk{Ordinal: 1}, Score: 0.7},
			{Chunk: &Chunk{Ordinal: 0}, Score: 0.4},
		}
	}

	a, b := build(), build()
	SortScored(a)
	SortScored(b)

	for i := range a {
		if a[i].Chunk.Ordinal != b[i].Chunk.Ordinal {
			t.Errorf("position %d differs between identical sorts", i)
		}
	}
}
