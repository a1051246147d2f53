package gemini

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

// Session is one Gemini Live stream
type Session struct {
	conn     *websocket.Conn
	mimeType string
	idle     time.Duration
	logger   *logger.Logger

	writeMu sync.Mutex
	ended   atomic.Bool // audioStreamEnd was sent

	events    chan transcription.Event
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func newSession(conn *websocket.Conn, sampleRate int, idle time.Duration, log *logger.Logger) *Session {
	return &Session{
		conn:     conn,
		mimeType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
		idle:     idle,
		logger:   log,
		events:   make(chan transcription.Event),
		done:     make(chan struct{}),
	}
}

// SendAudio streams one PCM frame as realtime input
func (s *Session) SendAudio(ctx context.Context, frame []byte) error {
	return s.writeJSON(ctx, map[string]any{
		"realtimeInput": map[string]any{
			"audio": map[string]any{
				"mimeType": s.mimeType,
				"data":     base64.StdEncoding.EncodeToString(frame),
			},
		},
	})
}

// EndStream tells the service the audio is finished. The stream then ends
// at the next completed turn or after the idle period.
func (s *Session) EndStream(ctx context.Context) error {
	s.ended.Store(true)
	if err := s.writeJSON(ctx, map[string]any{
		"realtimeInput": map[string]any{"audioStreamEnd": true},
	}); err != nil {
		return err
	}
	// readLoop owns the websocket reader; arm the idle timer on the
	// underlying net.Conn, which is safe to use concurrently.
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

// Close closes the connection
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
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

func (s *Session) readLoop() {
	defer close(s.events)

	var dec turnDecoder
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.readFailed(err)
			return
		}
		if s.ended.Load() {
			s.conn.SetReadDeadline(time.Now().Add(s.idle))
		}

		out := dec.decode(message)
		if out.goAway != "" {
			s.logger.Warn("Gemini announced disconnect", logger.String("time_left", out.goAway))
		}
		for _, ev := range out.events {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
		if out.turnEnd && s.ended.Load() {
			s.logger.Debug("Gemini turn complete after end of audio")
			return
		}
	}
}

func (s *Session) readFailed(err error) {
	if s.closed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Debug("Gemini stream closed")
		return
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && s.ended.Load() {
		s.logger.Debug("No more output from Gemini after end of audio")
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		s.setErr(fmt.Errorf("%w: connection closed with code %d: %s",
			transcription.ErrServiceFault, closeErr.Code, closeErr.Text))
	} else {
		s.setErr(fmt.Errorf("%w: %w", transcription.ErrTransport, err))
	}
	s.logger.Warn("Gemini stream ended with error", logger.Error(err))
}
