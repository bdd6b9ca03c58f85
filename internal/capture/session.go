// Package capture implements the audio capture session state machine.
// Hardware access is injected through the Microphone interface so the
// session logic is testable without a device.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// ErrPermissionDenied is returned by Start when the microphone source
// refuses access. The session stays idle.
var ErrPermissionDenied = fmt.Errorf("microphone permission denied")

// Microphone opens an audio stream. Implementations wrap real capture
// hardware or a test fake.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream delivers captured audio chunks. Chunks is closed when the
// stream ends. Stop releases the underlying hardware and must be safe
// to call more than once.
type Stream interface {
	Chunks() <-chan []byte
	MimeType() string
	Stop() error
}

const hintInterval = 100 * time.Millisecond

// Session drives one microphone at a time through idle -> recording ->
// idle. All methods are safe for concurrent use; Toggle acts on the
// state it reads, it never queues.
type Session struct {
	mic    Microphone
	log    zerolog.Logger
	hintFn func(string)

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	recording bool
	stream    Stream
	chunks    [][]byte
	startedAt time.Time
	stopHint  chan struct{}
	drained   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithHint registers a callback invoked every 100ms while recording
// with an elapsed-time hint such as "Recording... 0:07".
func WithHint(fn func(string)) Option { return func(s *Session) { s.hintFn = fn } }

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

func NewSession(mic Microphone, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		mic:   mic,
		log:   log.With().Str("component", "capture").Logger(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recording reports whether a capture is in progress.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Start opens the microphone and begins buffering chunks. Returns
// ErrPermissionDenied (wrapped) when access is refused; the session
// remains idle. Starting while already recording is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	stream, err := s.mic.Open(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("microphone open failed")
		return err
	}

	s.mu.Lock()
	if s.recording {
		// Raced with another Start; release the extra stream.
		s.mu.Unlock()
		_ = stream.Stop()
		return nil
	}
	s.recording = true
	s.stream = stream
	s.chunks = nil
	s.startedAt = s.now()
	s.stopHint = make(chan struct{})
	s.drained = make(chan struct{})
	s.mu.Unlock()

	go s.collect(stream)
	if s.hintFn != nil {
		go s.hintLoop(s.stopHint)
	}
	s.log.Debug().Msg("recording started")
	return nil
}

func (s *Session) collect(stream Stream) {
	for chunk := range stream.Chunks() {
		s.mu.Lock()
		if s.stream == stream {
			s.chunks = append(s.chunks, chunk)
		}
		s.mu.Unlock()
	}
	s.mu.Lock()
	d := s.drained
	s.mu.Unlock()
	if d != nil {
		close(d)
	}
}

func (s *Session) hintLoop(stop <-chan struct{}) {
	t := time.NewTicker(hintInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.mu.Lock()
			elapsed := s.now().Sub(s.startedAt)
			fn := s.hintFn
			s.mu.Unlock()
			secs := int(elapsed / time.Second)
			fn(fmt.Sprintf("Recording... %d:%02d", secs/60, secs%60))
		}
	}
}

// Stop finalizes the capture: releases the stream, flushes buffered
// chunks into one blob, and returns the completed recording. Calling
// Stop while idle returns (nil, nil). The hardware stream is released
// even when no data was collected.
func (s *Session) Stop() (*model.Recording, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil, nil
	}
	s.recording = false
	stream := s.stream
	stopHint := s.stopHint
	drained := s.drained
	s.mu.Unlock()

	if stopHint != nil {
		close(stopHint)
	}
	stopErr := stream.Stop()
	if drained != nil {
		<-drained
	}

	s.mu.Lock()
	now := s.now()
	rec := &model.Recording{
		ID:         s.newID(),
		Audio:      bytes.Join(s.chunks, nil),
		MimeType:   stream.MimeType(),
		CreatedAt:  model.NewLocalTime(now),
		DurationMs: now.Sub(s.startedAt).Milliseconds(),
		State:      model.TranscriptionIdle,
	}
	s.stream = nil
	s.chunks = nil
	s.drained = nil
	s.mu.Unlock()

	if stopErr != nil {
		s.log.Warn().Err(stopErr).Msg("stream release reported error")
	}
	s.log.Debug().Str("recordingId", rec.ID).Int64("durationMs", rec.DurationMs).Msg("recording stopped")
	return rec, nil
}

// Toggle starts when idle and stops when recording. The returned
// recording is non-nil only on the stop half.
func (s *Session) Toggle(ctx context.Context) (*model.Recording, error) {
	if s.Recording() {
		return s.Stop()
	}
	return nil, s.Start(ctx)
}
