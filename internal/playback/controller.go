// Package playback manages a single-slot audio player over stored
// recordings. The actual audio backend is injected via PlayerFactory.
package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/store"
)

// Player is one bound playback of a clip. Start begins playing and
// returns immediately; Stop discards the player. The callbacks passed
// at creation time report progress and termination.
type Player interface {
	Start() error
	Stop()
}

// Events receives playback callbacks. OnProgress fires periodically
// with the position in milliseconds; OnDone fires exactly once on
// natural completion or error, with err nil on completion.
type Events struct {
	OnProgress func(recordingID string, positionMs int64)
	OnDone     func(recordingID string, err error)
}

// PlayerFactory builds a Player for one audio clip.
type PlayerFactory func(audio []byte, mimeType string, ev Events) (Player, error)

// Controller holds the single "currently playing" slot. Play is a
// toggle: pressing the playing id stops it, any other id replaces it.
type Controller struct {
	store   store.Store
	factory PlayerFactory
	log     zerolog.Logger

	onProgress func(recordingID string, positionMs int64)
	onError    func(recordingID string, err error)

	mu        sync.Mutex
	currentID string
	player    Player
}

// Option configures a Controller.
type Option func(*Controller)

// WithProgress registers a progress listener.
func WithProgress(fn func(recordingID string, positionMs int64)) Option {
	return func(c *Controller) { c.onProgress = fn }
}

// WithErrorHandler registers a listener for playback errors. Errors
// are reported, never fatal.
func WithErrorHandler(fn func(recordingID string, err error)) Option {
	return func(c *Controller) { c.onError = fn }
}

func NewController(st store.Store, factory PlayerFactory, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:   st,
		factory: factory,
		log:     log.With().Str("component", "playback").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NowPlaying returns the id occupying the slot, or "".
func (c *Controller) NowPlaying() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// Play toggles playback of the recording. Any other active playback is
// stopped and discarded first. The slot clears itself on completion or
// error.
func (c *Controller) Play(ctx context.Context, recordingID string) error {
	c.mu.Lock()
	if c.currentID == recordingID {
		c.stopLocked()
		c.mu.Unlock()
		return nil
	}
	c.stopLocked()
	// Reserve the slot before unlocking: a concurrent Play must see this
	// id as the occupant and evict it instead of racing the install below.
	c.currentID = recordingID
	c.mu.Unlock()

	rec, err := c.store.Recordings().Get(ctx, recordingID)
	if err != nil {
		c.clear(recordingID)
		return err
	}

	ev := Events{
		OnProgress: func(id string, positionMs int64) {
			if c.onProgress != nil {
				c.onProgress(id, positionMs)
			}
		},
		OnDone: func(id string, err error) {
			c.clear(id)
			if err != nil {
				c.log.Warn().Err(err).Str("recordingId", id).Msg("playback failed")
				if c.onError != nil {
					c.onError(id, err)
				}
			}
		},
	}
	player, err := c.factory(rec.Audio, rec.MimeType, ev)
	if err != nil {
		c.clear(recordingID)
		return err
	}

	c.mu.Lock()
	if c.currentID != recordingID {
		// Evicted while loading; another Play owns the slot now.
		c.mu.Unlock()
		player.Stop()
		return nil
	}
	c.player = player
	c.mu.Unlock()

	if err := player.Start(); err != nil {
		c.clear(recordingID)
		return err
	}
	return nil
}

// Stop releases the slot regardless of what is playing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.player != nil {
		c.player.Stop()
	}
	c.player = nil
	c.currentID = ""
}

// clear empties the slot only if the given id still owns it.
func (c *Controller) clear(recordingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentID == recordingID {
		c.player = nil
		c.currentID = ""
	}
}
