package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// blockingBackend signals each play start and holds the connection open
// until released.
type blockingBackend struct {
	started chan string
	release chan struct{}
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingBackend) Play(ctx context.Context, _ snowflake.ID, cueID string) error {
	b.started <- cueID
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingBackend) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case cue := <-b.started:
		return cue
	case <-time.After(2 * time.Second):
		t.Fatal("backend never started playing")
		return ""
	}
}

func (b *blockingBackend) assertNotStarted(t *testing.T) {
	t.Helper()
	select {
	case cue := <-b.started:
		t.Fatalf("backend unexpectedly played %q", cue)
	case <-time.After(50 * time.Millisecond):
	}
}

type countingBackend struct {
	mu    sync.Mutex
	plays []string
}

func (b *countingBackend) Play(_ context.Context, _ snowflake.ID, cueID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays = append(b.plays, cueID)
	return nil
}

func (b *countingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.plays)
}

func TestCueServiceCooldown(t *testing.T) {
	backend := &countingBackend{}
	service := NewCueService(backend)

	current := time.Now()
	service.now = func() time.Time { return current }

	channel := snowflake.ID(1)
	if err := service.PlayCue(context.Background(), channel, "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	waitFor(t, func() bool { return backend.count() == 1 })

	// Same pair inside the cooldown window: skipped, not an error.
	current = current.Add(time.Minute)
	if err := service.PlayCue(context.Background(), channel, "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := backend.count(); got != 1 {
		t.Errorf("plays = %d, want 1 during cooldown", got)
	}

	// Past the cooldown it plays again.
	current = current.Add(cueCooldown)
	if err := service.PlayCue(context.Background(), channel, "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	waitFor(t, func() bool { return backend.count() == 2 })
}

func TestCueServiceCooldownIsPerChannelAndCue(t *testing.T) {
	backend := &countingBackend{}
	service := NewCueService(backend)

	now := time.Now()
	service.now = func() time.Time { return now }

	if err := service.PlayCue(context.Background(), snowflake.ID(1), "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	waitFor(t, func() bool { return backend.count() == 1 })

	// Different cue in the same channel and same cue in another channel
	// both play immediately.
	if err := service.PlayCue(context.Background(), snowflake.ID(1), "fourhour"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	waitFor(t, func() bool { return backend.count() == 2 })

	if err := service.PlayCue(context.Background(), snowflake.ID(2), "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	waitFor(t, func() bool { return backend.count() == 3 })
}

func TestCueServiceSingleConnectionPerChannel(t *testing.T) {
	backend := newBlockingBackend()
	service := NewCueService(backend)

	channel := snowflake.ID(1)
	if err := service.PlayCue(context.Background(), channel, "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	backend.waitStarted(t)

	// Channel is busy: a different cue is skipped silently.
	if err := service.PlayCue(context.Background(), channel, "fourhour"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	backend.assertNotStarted(t)

	// Another channel is unaffected.
	if err := service.PlayCue(context.Background(), snowflake.ID(2), "break"); err != nil {
		t.Fatalf("PlayCue() error = %v", err)
	}
	backend.waitStarted(t)

	close(backend.release)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
