package similarity

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIndex_SearchEmpty(t *testing.T) {
	ix := NewIndex()
	matches, err := ix.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected empty result, got %d matches", len(matches))
	}
}

func TestIndex_SearchOrdering(t *testing.T) {
	ix := NewIndex()
	if err := ix.Add("exact", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Add("close", []float32{0.9, 0.1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Add("far", []float32{0, 0, 1}); err != nil {
		t.Fatal(err)
	}

	matches, err := ix.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	if matches[0].ContentID != "exact" || matches[1].ContentID != "close" || matches[2].ContentID != "far" {
		t.Errorf("Unexpected ordering: %v", matches)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Errorf("Expected score 1.0 for exact match, got %f", matches[0].Score)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("Scores not descending: %v", matches)
		}
	}
}

func TestIndex_TopK(t *testing.T) {
	ix := NewIndex()
	ix.Add("a", []float32{1, 0})
	ix.Add("b", []float32{0.8, 0.2})
	ix.Add("c", []float32{0, 1})

	matches, err := ix.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Expected 2 matches with k=2, got %d", len(matches))
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ix := NewIndex()
	if err := ix.Add("a", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}

	if _, err := ix.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch from search, got %v", err)
	}
	if err := ix.Add("b", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch from add, got %v", err)
	}
}

func TestIndex_AddReplaces(t *testing.T) {
	ix := NewIndex()
	ix.Add("a", []float32{1, 0})
	ix.Add("a", []float32{0, 1})

	if ix.Len() != 1 {
		t.Fatalf("Expected 1 entry after replacement, got %d", ix.Len())
	}
	matches, _ := ix.Search([]float32{0, 1}, 1)
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Errorf("Expected replaced vector to match query, score %f", matches[0].Score)
	}
}

func TestIndex_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "similarity.idx")

	ix := NewIndex()
	ix.Add("clip01", []float32{1, 0, 0})
	ix.Add("clip02", []float32{0, 1, 0})
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 || loaded.Dim() != 3 {
		t.Fatalf("Loaded index has len=%d dim=%d", loaded.Len(), loaded.Dim())
	}
	matches, err := loaded.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search on loaded index failed: %v", err)
	}
	if matches[0].ContentID != "clip01" {
		t.Errorf("Expected clip01, got %s", matches[0].ContentID)
	}
}

func TestIndex_SaveConcurrentWithAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.idx")
	ix := NewIndex()
	for i := 0; i < 64; i++ {
		if err := ix.Add(fmt.Sprintf("clip%02d", i), []float32{float32(i), 1, 0}); err != nil {
			t.Fatal(err)
		}
	}

	// Replacing writers race the artifact encoder without a snapshot copy.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			ix.Add(fmt.Sprintf("clip%02d", i%64), []float32{float32(i), 0, 1})
		}
	}()
	for i := 0; i < 50; i++ {
		if err := ix.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	<-done

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 64 || loaded.Dim() != 3 {
		t.Errorf("Artifact corrupted: len=%d dim=%d", loaded.Len(), loaded.Dim())
	}
}

func TestLoad_AbsentArtifact(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "missing.idx"))
	if err != nil {
		t.Fatalf("Load of absent artifact should not fail: %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected empty index, got %d entries", ix.Len())
	}
}

func TestLoad_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.idx")
	if err := os.WriteFile(path, []byte("not a gob"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for corrupt artifact")
	}
}

func TestFeatureVector_CombinedOrdering(t *testing.T) {
	fv := &FeatureVector{
		Visual:   []float32{1, 2},
		Audio:    []float32{3, 4, 5},
		Metadata: Metadata{SourcePath: "clip01.mp4", ExtractedAt: time.Now()},
	}
	combined := fv.Combined()
	want := []float32{1, 2, 3, 4, 5}
	if len(combined) != len(want) {
		t.Fatalf("Expected length %d, got %d", len(want), len(combined))
	}
	for i := range want {
		if combined[i] != want[i] {
			t.Fatalf("Combined vector must be visual-then-audio, got %v", combined)
		}
	}
}
