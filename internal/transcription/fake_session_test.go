package transcription

import (
	"context"
	"sync"
)

// fakeSession records outbound audio and replays a scripted event stream
// once the end-of-stream marker arrives.
type fakeSession struct {
	script  []Event
	endErr  error // reported by Err after the script is replayed
	hang    bool  // never end the event stream
	failAt  int   // SendAudio call index that fails, -1 for never
	sendErr error

	mu         sync.Mutex
	frames     [][]byte
	sendCalls  int
	ended      bool
	closed     bool
	closeCalls int
	err        error

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeSession(script ...Event) *fakeSession {
	return &fakeSession{
		script: script,
		failAt: -1,
		events: make(chan Event),
		done:   make(chan struct{}),
	}
}

func (s *fakeSession) SendAudio(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	call := s.sendCalls
	s.sendCalls++
	if call == s.failAt {
		return s.sendErr
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *fakeSession) EndStream(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.ended = true
	if !s.hang {
		go s.replay()
	}
	return nil
}

func (s *fakeSession) replay() {
	for _, ev := range s.script {
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
	s.mu.Lock()
	s.err = s.endErr
	s.mu.Unlock()
	close(s.events)
}

func (s *fakeSession) Events() <-chan Event { return s.events }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.closeCalls++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSession) snapshot() (frames [][]byte, ended, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.ended, s.closed
}

type fakeProvider struct {
	session   *fakeSession
	streaming bool
	openErr   error

	mu     sync.Mutex
	opened []SessionConfig
}

func (p *fakeProvider) Name() string    { return "fake" }
func (p *fakeProvider) Streaming() bool { return p.streaming }

func (p *fakeProvider) Open(ctx context.Context, cfg SessionConfig) (Session, error) {
	p.mu.Lock()
	p.opened = append(p.opened, cfg)
	p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.session, nil
}

func (p *fakeProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

func ptr[T any](v T) *T { return &v }
