package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeLister struct {
	names []string
	err   error
}

func (f *fakeLister) ListArtists(ctx context.Context) ([]string, error) {
	return f.names, f.err
}

func TestRefreshSortsAndNormalizes(t *testing.T) {
	c := New()
	snap, err := c.Refresh(context.Background(), &fakeLister{
		names: []string{"Zeal & Ardor", "Björk", "air"},
	})
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	wantNames := []string{"air", "Bjork", "Zeal & Ardor"}
	if len(snap) != len(wantNames) {
		t.Fatalf("snapshot length = %d, want %d", len(snap), len(wantNames))
	}
	for i, want := range wantNames {
		if snap[i].Name != want {
			t.Errorf("snapshot[%d].Name = %q, want %q", i, snap[i].Name, want)
		}
	}
	if snap[1].Key != "bjork" {
		t.Errorf("normalized key = %q, want %q", snap[1].Key, "bjork")
	}
}

func TestRefreshFailureKeepsOldSnapshot(t *testing.T) {
	c := New()
	if _, err := c.Refresh(context.Background(), &fakeLister{names: []string{"Low"}}); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	_, err := c.Refresh(context.Background(), &fakeLister{err: errors.New("lidarr down")})
	if err == nil {
		t.Fatal("expected error from failing lister")
	}

	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Name != "Low" {
		t.Errorf("old snapshot should survive a failed refresh, got %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	if _, err := c.Refresh(context.Background(), &fakeLister{names: []string{"Low"}}); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	snap[0].Name = "mutated"

	if c.Snapshot()[0].Name != "Low" {
		t.Error("mutating a snapshot must not affect the cache")
	}
}

func TestRecordAdditionIdempotent(t *testing.T) {
	c := New()
	c.RecordAddition("Björk")
	c.RecordAddition("bjork")
	c.RecordAddition("BJÖRK")

	if got := len(c.Snapshot()); got != 1 {
		t.Errorf("cache length = %d, want 1 (same normalized key)", got)
	}

	if _, ok := c.Keys()["bjork"]; !ok {
		t.Error("expected key 'bjork' present")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.Refresh(context.Background(), &fakeLister{names: []string{"A", "B", "C"}})
		}()
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
			_ = c.Keys()
			c.RecordAddition("D")
		}()
	}

	wg.Wait()
}
