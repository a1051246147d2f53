package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

const closeGracePeriod = time.Second

// Session is one websocket transcription stream
type Session struct {
	id     string
	conn   *websocket.Conn
	idle   time.Duration
	logger *logger.Logger

	writeMu sync.Mutex
	ended   atomic.Bool // input buffer was committed

	events    chan transcription.Event
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func newSession(id string, conn *websocket.Conn, idle time.Duration, log *logger.Logger) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		idle:   idle,
		logger: log,
		events: make(chan transcription.Event),
		done:   make(chan struct{}),
	}
}

// ID returns the client-side session identifier
func (s *Session) ID() string {
	return s.id
}

// SendAudio appends a frame to the service's input buffer
func (s *Session) SendAudio(ctx context.Context, frame []byte) error {
	return s.writeJSON(ctx, map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(frame),
	})
}

// EndStream commits the input buffer, signalling no more audio follows.
// The stream then ends when the service closes it or stays silent for the
// idle period.
func (s *Session) EndStream(ctx context.Context) error {
	s.ended.Store(true)
	if err := s.writeJSON(ctx, map[string]any{
		"type": "input_audio_buffer.commit",
	}); err != nil {
		return err
	}
	return s.conn.NetConn().SetReadDeadline(time.Now().Add(s.idle))
}

func (s *Session) Events() <-chan transcription.Event {
	return s.events
}

func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close closes the connection. Safe to call concurrently with writes.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = s.conn.Close()
		s.logger.Debug("Closed realtime session")
	})
	return err
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) writeJSON(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed() {
		return transcription.ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(v); err != nil {
		if s.closed() {
			return transcription.ErrSessionClosed
		}
		return err
	}
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// readLoop decodes server messages into events until the stream ends
func (s *Session) readLoop() {
	defer close(s.events)

	dec := newEventDecoder()
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Realtime stream closed")
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && s.ended.Load() {
				s.logger.Debug("No more output from realtime service after commit")
				return
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				s.setErr(fmt.Errorf("%w: connection closed with code %d: %s",
					transcription.ErrServiceFault, closeErr.Code, closeErr.Text))
			} else {
				s.setErr(fmt.Errorf("%w: %w", transcription.ErrTransport, err))
			}
			s.logger.Warn("Realtime stream ended with error", logger.Error(err))
			return
		}

		if s.ended.Load() {
			s.conn.SetReadDeadline(time.Now().Add(s.idle))
		}

		out := dec.decode(message)
		if out.fault != nil {
			s.logger.Error("Received error from realtime service", logger.Error(out.fault))
			s.setErr(out.fault)
			return
		}
		if out.end {
			s.logger.Debug("Realtime service closed the session")
			return
		}
		if out.event == nil {
			continue
		}

		select {
		case s.events <- *out.event:
		case <-s.done:
			return
		}
	}
}
