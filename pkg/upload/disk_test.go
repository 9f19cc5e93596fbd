package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func newDiskStore(t *testing.T, maxSize int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), maxSize)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, Meta{Filename: "notes.txt", ContentType: "text/plain"},
		strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}

	file, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	if file.Filename != "notes.txt" || file.ContentType != "text/plain" || file.Size != 5 {
		t.Errorf("file = %+v", file)
	}
	data, err := io.ReadAll(file.Reader)
	if err != nil || string(data) != "hello" {
		t.Errorf("contents = %q, %v", data, err)
	}
}

func TestDiskStoreClaimOnce(t *testing.T) {
	store := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, Meta{Filename: "x"}, strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	file, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	file.Close()

	if _, err := store.Claim(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second claim err = %v, want ErrNotFound", err)
	}
}

func TestDiskStoreRemovesDataOnClose(t *testing.T) {
	store := newDiskStore(t, 0)
	ctx := context.Background()

	id, _ := store.Save(ctx, Meta{Filename: "x"}, strings.NewReader("x"))
	file, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(file.Path); err != nil {
		t.Fatalf("data file missing before close: %v", err)
	}
	file.Close()
	if _, err := os.Stat(file.Path); !os.IsNotExist(err) {
		t.Errorf("data file survived close: %v", err)
	}
}

func TestDiskStoreEnforcesMaxSize(t *testing.T) {
	store := newDiskStore(t, 4)
	ctx := context.Background()

	// Declared size over the cap.
	if _, err := store.Save(ctx, Meta{Size: 100}, strings.NewReader("x")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("declared oversize err = %v", err)
	}

	// Actual bytes over the cap, declared size lying.
	if _, err := store.Save(ctx, Meta{Size: 2}, strings.NewReader("oversized")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("actual oversize err = %v", err)
	}

	// At the cap exactly.
	if _, err := store.Save(ctx, Meta{Size: 4}, strings.NewReader("1234")); err != nil {
		t.Errorf("at-limit save err = %v", err)
	}
}

func TestDiskStoreRejectsForgedIDs(t *testing.T) {
	store := newDiskStore(t, 0)

	for _, id := range []string{"../../etc/passwd", "not-a-uuid", ""} {
		if _, err := store.Claim(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Claim(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestDiskStoreCleanup(t *testing.T) {
	store := newDiskStore(t, 0)
	ctx := context.Background()

	id, err := store.Save(ctx, Meta{Filename: "old"}, strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := store.Cleanup(ctx, time.Nanosecond); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Claim(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("claim after cleanup err = %v, want ErrNotFound", err)
	}
}
