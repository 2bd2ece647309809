package similarity

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a vector's dimensionality does not
// match the index. It is fatal to the search; vectors are never truncated or
// padded.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one nearest-neighbor hit, scored by cosine similarity.
type Match struct {
	ContentID string
	Score     float64
}

// Entry is an (id, vector) pair for bulk index rebuilds.
type Entry struct {
	ContentID string
	Vector    []float32
}

// Index is a flat cosine-similarity index over fixed-dimension vectors.
// Vectors are L2-normalized on insert so search reduces to dot products.
// Safe for concurrent use; search never blocks other searches.
type Index struct {
	mu   sync.RWMutex
	dim  int
	ids  []string
	pos  map[string]int
	vecs [][]float32
}

// NewIndex creates an empty index. The dimension is fixed by the first
// vector added.
func NewIndex() *Index {
	return &Index{pos: make(map[string]int)}
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Dim returns the index dimensionality, 0 when empty.
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Add inserts or replaces the vector for contentID.
func (ix *Index) Add(contentID string, vec []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.addLocked(contentID, vec)
}

func (ix *Index) addLocked(contentID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for %s", contentID)
	}
	if ix.dim == 0 {
		ix.dim = len(vec)
	} else if len(vec) != ix.dim {
		return fmt.Errorf("%w: index dim %d, vector dim %d", ErrDimensionMismatch, ix.dim, len(vec))
	}

	normalized := normalize(vec)
	if i, ok := ix.pos[contentID]; ok {
		ix.vecs[i] = normalized
		return nil
	}
	ix.pos[contentID] = len(ix.ids)
	ix.ids = append(ix.ids, contentID)
	ix.vecs = append(ix.vecs, normalized)
	return nil
}

// Rebuild replaces the whole index content with entries.
func (ix *Index) Rebuild(entries []Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.dim = 0
	ix.ids = nil
	ix.vecs = nil
	ix.pos = make(map[string]int, len(entries))
	for _, e := range entries {
		if err := ix.addLocked(e.ContentID, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to k matches ordered by descending similarity. Searching
// an empty index returns an empty result: "no known matches" is a valid,
// common outcome, not an error. Threshold filtering belongs to the caller.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.ids) == 0 {
		return []Match{}, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: index dim %d, query dim %d", ErrDimensionMismatch, ix.dim, len(query))
	}
	if k <= 0 {
		return []Match{}, nil
	}

	q := normalize(query)
	matches := make([]Match, len(ix.ids))
	for i, vec := range ix.vecs {
		matches[i] = Match{ContentID: ix.ids[i], Score: dot(q, vec)}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

type indexSnapshot struct {
	Dim  int
	IDs  []string
	Vecs [][]float32
}

// Save writes the index artifact atomically (write to temp file, rename).
func (ix *Index) Save(path string) error {
	// Copy the slices under the lock: Add replaces vector slots in place,
	// and the encoder below reads after the lock is released. Vectors
	// themselves are never mutated once inserted, so copying the headers
	// is enough.
	ix.mu.RLock()
	snap := indexSnapshot{
		Dim:  ix.dim,
		IDs:  append([]string(nil), ix.ids...),
		Vecs: append([][]float32(nil), ix.vecs...),
	}
	ix.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp index file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads an index artifact from disk. A missing artifact is not an
// error: the service starts with zero known content.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index artifact: %w", err)
	}
	defer f.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index artifact: %w", err)
	}

	ix := NewIndex()
	ix.dim = snap.Dim
	ix.ids = snap.IDs
	ix.vecs = snap.Vecs
	for i, id := range snap.IDs {
		ix.pos[id] = i
	}
	return ix, nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	if norm == 0 {
		copy(out, vec)
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
