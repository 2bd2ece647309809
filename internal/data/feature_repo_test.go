package data

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"videomod/internal/pkg/similarity"
)

// newTestFeatureRepo connects to the database named by TEST_POSTGRES_DSN and
// applies migrations. Tests using it skip when the variable is unset.
func newTestFeatureRepo(t *testing.T) (similarity.FeatureStore, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(pool.Close)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := RunMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	return NewFeatureRepo(&Data{Pool: pool, DB: db}, log.DefaultLogger), pool
}

func TestFeatureRepo_AbsentID(t *testing.T) {
	repo, _ := newTestFeatureRepo(t)

	fv, ok, err := repo.Load(context.Background(), "never-saved-"+uuid.NewString())
	if err != nil {
		t.Fatalf("Load of absent id must not error: %v", err)
	}
	if ok || fv != nil {
		t.Errorf("Expected (nil, false, nil), got (%v, %v)", fv, ok)
	}
}

func TestFeatureRepo_LastWriterWins(t *testing.T) {
	repo, pool := newTestFeatureRepo(t)
	ctx := context.Background()

	contentID := "clip-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM feature_vectors WHERE content_id = $1", contentID)
	})

	first := &similarity.FeatureVector{
		Visual:   []float32{1, 0},
		Audio:    []float32{0, 1},
		Metadata: similarity.Metadata{SourcePath: "/videos/a.mp4", ExtractedAt: time.Now().UTC()},
	}
	if err := repo.Save(ctx, contentID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := &similarity.FeatureVector{
		Visual:   []float32{0.5, 0.5},
		Audio:    []float32{1, 0},
		Metadata: similarity.Metadata{SourcePath: "/videos/b.mp4", ExtractedAt: time.Now().UTC()},
	}
	if err := repo.Save(ctx, contentID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	fv, ok, err := repo.Load(ctx, contentID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected saved vector to be present")
	}
	if fv.Visual[0] != 0.5 || fv.Audio[0] != 1 || fv.Metadata.SourcePath != "/videos/b.mp4" {
		t.Errorf("Expected the second write to win, got %+v", fv)
	}

	stored, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var seen int
	for _, sv := range stored {
		if sv.ContentID == contentID {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("Expected exactly one row for %s, got %d", contentID, seen)
	}
}
