package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videomod/internal/pkg/similarity"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
)

// featureRepo persists feature vectors in postgres. Save is an upsert inside
// one statement, so readers see either the old row or the new one in full.
type featureRepo struct {
	data *Data
	log  *log.Helper
}

// NewFeatureRepo creates a postgres-backed feature store.
func NewFeatureRepo(data *Data, logger log.Logger) similarity.FeatureStore {
	return &featureRepo{data: data, log: log.NewHelper(logger)}
}

func (r *featureRepo) Save(ctx context.Context, contentID string, fv *similarity.FeatureVector) error {
	const q = `
		INSERT INTO feature_vectors (content_id, visual, audio, source_path, extracted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (content_id) DO UPDATE SET
			visual = EXCLUDED.visual,
			audio = EXCLUDED.audio,
			source_path = EXCLUDED.source_path,
			extracted_at = EXCLUDED.extracted_at,
			updated_at = now()`

	_, err := r.data.Pool.Exec(ctx, q,
		contentID, fv.Visual, fv.Audio, fv.Metadata.SourcePath, fv.Metadata.ExtractedAt)
	if err != nil {
		return fmt.Errorf("failed to save feature vector %s: %w", contentID, err)
	}
	return nil
}

func (r *featureRepo) Load(ctx context.Context, contentID string) (*similarity.FeatureVector, bool, error) {
	const q = `
		SELECT visual, audio, source_path, extracted_at
		FROM feature_vectors WHERE content_id = $1`

	fv := &similarity.FeatureVector{}
	var extractedAt time.Time
	err := r.data.Pool.QueryRow(ctx, q, contentID).
		Scan(&fv.Visual, &fv.Audio, &fv.Metadata.SourcePath, &extractedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load feature vector %s: %w", contentID, err)
	}
	fv.Metadata.ExtractedAt = extractedAt
	return fv, true, nil
}

func (r *featureRepo) List(ctx context.Context) ([]similarity.StoredVector, error) {
	const q = `
		SELECT content_id, visual, audio, source_path, extracted_at
		FROM feature_vectors ORDER BY content_id`

	rows, err := r.data.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature vectors: %w", err)
	}
	defer rows.Close()

	var out []similarity.StoredVector
	for rows.Next() {
		var id string
		fv := &similarity.FeatureVector{}
		if err := rows.Scan(&id, &fv.Visual, &fv.Audio, &fv.Metadata.SourcePath, &fv.Metadata.ExtractedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feature vector: %w", err)
		}
		out = append(out, similarity.StoredVector{ContentID: id, Vector: fv})
	}
	return out, rows.Err()
}
