//go:build unix

package lockfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestExclusiveExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	ctx := context.Background()

	first, err := Exclusive(ctx, path, 0)
	if err != nil {
		t.Fatalf("first Exclusive: %v", err)
	}

	// flock locks belong to the open file description, so a second open in
	// the same process conflicts just like another process would.
	if _, err := Exclusive(ctx, path, 0); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("second Exclusive: got %v, want ErrLockBusy", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := Exclusive(ctx, path, 0)
	if err != nil {
		t.Fatalf("Exclusive after release: %v", err)
	}
	_ = second.Release()
}

func TestExclusiveWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	ctx := context.Background()

	held, err := Exclusive(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release()
		close(done)
	}()

	lock, err := Exclusive(ctx, path, 2*time.Second)
	if err != nil {
		t.Fatalf("Exclusive with timeout: %v", err)
	}
	_ = lock.Release()
	<-done
}

func TestSharedLocksCoexist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	ctx := context.Background()

	a, err := Shared(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Release() }()
	b, err := Shared(ctx, path, 0)
	if err != nil {
		t.Fatalf("second shared lock: %v", err)
	}
	defer func() { _ = b.Release() }()

	if _, err := Exclusive(ctx, path, 0); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("exclusive over shared: got %v, want ErrLockBusy", err)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil Release: %v", err)
	}
}
