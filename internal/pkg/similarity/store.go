package similarity

import "context"

// StoredVector pairs a content identifier with its persisted features.
type StoredVector struct {
	ContentID string
	Vector    *FeatureVector
}

// FeatureStore persists feature vectors keyed by content identifier.
//
// Save overwrites any prior entry (last-writer-wins, atomic publish: a
// concurrent Load sees either the old or the new vector in full, never a
// partial write). Load returns ok=false when no entry exists; that is not an
// error. List feeds index rebuilds.
type FeatureStore interface {
	Save(ctx context.Context, contentID string, fv *FeatureVector) error
	Load(ctx context.Context, contentID string) (fv *FeatureVector, ok bool, err error)
	List(ctx context.Context) ([]StoredVector, error)
}
