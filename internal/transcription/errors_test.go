package transcription

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: mp4", ErrUnsupportedFormat), KindUnsupportedFormat},
		{fmt.Errorf("%w: bad header", ErrDecode), KindDecode},
		{fmt.Errorf("%w: frame 3: %w", ErrTransport, errors.New("reset")), KindTransport},
		{fmt.Errorf("sending frame 1: %w", ErrSessionClosed), KindSessionClosed},
		{fmt.Errorf("%w after 60s", ErrTimeout), KindTimeout},
		{context.DeadlineExceeded, KindTimeout},
		{ErrNotSupported, KindNotSupported},
		{fmt.Errorf("%w: %w", ErrServiceFault, errors.New("throttled")), KindServiceFault},
		{fmt.Errorf("%w: too many", ErrInvalidRequest), KindInvalidRequest},
		{ErrFileNotFound, KindFileNotFound},
		{errors.New("something else"), KindInternal},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
