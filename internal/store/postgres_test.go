package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
)

func testStore(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("INKSLATE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("INKSLATE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewPostgres(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestSnapshotVersions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CreateCanvas(ctx, "notes", []byte(`{"version":1,"items":[]}`))
	if err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}
	got, err := s.GetCanvas(ctx, c.ID)
	if err != nil || got.Name != "notes" {
		t.Fatalf("GetCanvas = %+v, %v", got, err)
	}

	v, err := s.SaveSnapshot(ctx, c.ID, []byte(`{"version":1,"orderHighWater":3,"items":[]}`))
	if err != nil || v != 2 {
		t.Fatalf("SaveSnapshot = %d, %v; want version 2", v, err)
	}

	snap, err := s.LatestSnapshot(ctx, c.ID)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	var doc struct {
		OrderHighWater int `json:"orderHighWater"`
	}
	if err := json.Unmarshal(snap.Document, &doc); err != nil || snap.Version != 2 || doc.OrderHighWater != 3 {
		t.Fatalf("latest = v%d %s", snap.Version, snap.Document)
	}

	list, err := s.ListCanvases(ctx)
	if err != nil || len(list) == 0 {
		t.Fatalf("ListCanvases = %v, %v", list, err)
	}
}

func TestConcurrentSavesGetDistinctVersions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CreateCanvas(ctx, "race", []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		versions = map[int]bool{}
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.SaveSnapshot(ctx, c.ID, []byte(`{}`))
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			versions[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(versions) != 8 {
		t.Fatalf("versions = %v, want 8 distinct", versions)
	}
}

func TestMissingCanvas(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetCanvas(ctx, "canvas_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCanvas error = %v", err)
	}
	if _, err := s.LatestSnapshot(ctx, "canvas_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestSnapshot error = %v", err)
	}
	if _, err := s.SaveSnapshot(ctx, "canvas_missing", []byte(`{}`)); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveSnapshot error = %v", err)
	}
}
