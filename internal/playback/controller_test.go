package playback

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
	"github.com/sundaylabs/sunday-server/internal/store/sqlite"
)

type fakePlayer struct {
	ev      Events
	id      string
	started bool
	stopped bool
	mu      sync.Mutex
}

func (p *fakePlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *fakePlayer) finish(err error) { p.ev.OnDone(p.id, err) }

type fakeBackend struct {
	mu      sync.Mutex
	players []*fakePlayer
	nextID  string
}

func (b *fakeBackend) factory(audio []byte, mimeType string, ev Events) (Player, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &fakePlayer{ev: ev, id: b.nextID}
	b.players = append(b.players, p)
	return p, nil
}

func newController(t *testing.T, opts ...Option) (*Controller, *fakeBackend, store.Store) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "sunday.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	b := &fakeBackend{}
	c := NewController(st, b.factory, zerolog.Nop(), opts...)
	return c, b, st
}

func seed(t *testing.T, st store.Store, id string) {
	t.Helper()
	_, err := st.Recordings().Save(context.Background(), &model.Recording{
		ID: id, Audio: []byte("audio-" + id), MimeType: "audio/webm",
		CreatedAt: model.NewLocalTime(time.Now()), DurationMs: 1000,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestPlay_TogglesSameID(t *testing.T) {
	c, b, st := newController(t)
	seed(t, st, "r1")
	ctx := context.Background()

	b.nextID = "r1"
	if err := c.Play(ctx, "r1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if c.NowPlaying() != "r1" {
		t.Fatalf("NowPlaying = %q", c.NowPlaying())
	}
	if !b.players[0].started {
		t.Fatal("player not started")
	}

	// Second press on the same id toggles off.
	if err := c.Play(ctx, "r1"); err != nil {
		t.Fatalf("Play toggle: %v", err)
	}
	if c.NowPlaying() != "" {
		t.Fatalf("NowPlaying after toggle = %q", c.NowPlaying())
	}
	if !b.players[0].stopped {
		t.Fatal("player not stopped on toggle")
	}
}

func TestPlay_ReplacesOtherPlayback(t *testing.T) {
	c, b, st := newController(t)
	seed(t, st, "r1")
	seed(t, st, "r2")
	ctx := context.Background()

	b.nextID = "r1"
	if err := c.Play(ctx, "r1"); err != nil {
		t.Fatalf("Play r1: %v", err)
	}
	b.nextID = "r2"
	if err := c.Play(ctx, "r2"); err != nil {
		t.Fatalf("Play r2: %v", err)
	}
	if !b.players[0].stopped {
		t.Fatal("first player must be discarded")
	}
	if c.NowPlaying() != "r2" {
		t.Fatalf("NowPlaying = %q", c.NowPlaying())
	}
}

func TestPlay_SlotClearsOnCompletion(t *testing.T) {
	c, b, st := newController(t)
	seed(t, st, "r1")

	b.nextID = "r1"
	if err := c.Play(context.Background(), "r1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	b.players[0].finish(nil)
	if c.NowPlaying() != "" {
		t.Fatalf("slot not cleared: %q", c.NowPlaying())
	}
}

func TestPlay_ErrorReportedAndSlotCleared(t *testing.T) {
	var gotID string
	var gotErr error
	c, b, st := newController(t, WithErrorHandler(func(id string, err error) {
		gotID, gotErr = id, err
	}))
	seed(t, st, "r1")

	b.nextID = "r1"
	if err := c.Play(context.Background(), "r1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	b.players[0].finish(errors.New("decode error"))

	if c.NowPlaying() != "" {
		t.Fatal("slot must clear on error")
	}
	if gotID != "r1" || gotErr == nil {
		t.Fatalf("error not reported: %q %v", gotID, gotErr)
	}
}

func TestPlay_ProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var positions []int64
	c, b, st := newController(t, WithProgress(func(id string, pos int64) {
		mu.Lock()
		positions = append(positions, pos)
		mu.Unlock()
	}))
	seed(t, st, "r1")

	b.nextID = "r1"
	if err := c.Play(context.Background(), "r1"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	b.players[0].ev.OnProgress("r1", 250)
	b.players[0].ev.OnProgress("r1", 500)

	mu.Lock()
	defer mu.Unlock()
	if len(positions) != 2 || positions[1] != 500 {
		t.Fatalf("positions = %v", positions)
	}
}

func TestPlay_ConcurrentReplaceStopsLoser(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "sunday.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	b := &fakeBackend{}
	entered := make(chan struct{})
	release := make(chan struct{})
	// The first build (r1's clip) parks until released, letting a second
	// Play land while the first is still loading its player.
	factory := func(audio []byte, mimeType string, ev Events) (Player, error) {
		if string(audio) == "audio-r1" {
			close(entered)
			<-release
		}
		return b.factory(audio, mimeType, ev)
	}
	c := NewController(st, factory, zerolog.Nop())
	seed(t, st, "r1")
	seed(t, st, "r2")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Play(ctx, "r1") }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first playback never started loading")
	}

	b.nextID = "r2"
	if err := c.Play(ctx, "r2"); err != nil {
		t.Fatalf("Play r2: %v", err)
	}

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Play r1: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Play never returned")
	}

	if c.NowPlaying() != "r2" {
		t.Fatalf("NowPlaying = %q, want r2", c.NowPlaying())
	}
	if b.players[0].stopped {
		t.Fatal("winning player must keep playing")
	}
	if !b.players[1].stopped {
		t.Fatal("evicted player must be stopped")
	}
}

func TestPlay_UnknownRecording(t *testing.T) {
	c, _, _ := newController(t)
	err := c.Play(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if c.NowPlaying() != "" {
		t.Fatal("slot must stay empty on failure")
	}
}
