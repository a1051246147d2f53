package transcription

import (
	"context"
	"errors"

	"github.com/yegors/scribe/internal/audio"
)

var (
	ErrUnsupportedFormat = audio.ErrUnsupportedFormat
	ErrDecode            = audio.ErrDecode

	ErrTransport      = errors.New("transport error")
	ErrSessionClosed  = errors.New("session closed")
	ErrTimeout        = errors.New("transcription timed out")
	ErrNotSupported   = errors.New("batch transcription is not supported; use a streaming-capable provider")
	ErrServiceFault   = errors.New("recognition service fault")
	ErrInvalidRequest = errors.New("invalid request")
	ErrFileNotFound   = errors.New("audio file not found")
)

// Error kinds reported in Result.ErrorKind
const (
	KindUnsupportedFormat = "unsupported_format"
	KindDecode            = "decode_error"
	KindTransport         = "transport_error"
	KindSessionClosed     = "session_closed"
	KindTimeout           = "timeout"
	KindNotSupported      = "not_supported"
	KindServiceFault      = "service_fault"
	KindInvalidRequest    = "invalid_request"
	KindFileNotFound      = "file_not_found"
	KindInternal          = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrTimeout, KindTimeout},
	{context.DeadlineExceeded, KindTimeout},
	{ErrUnsupportedFormat, KindUnsupportedFormat},
	{ErrDecode, KindDecode},
	{ErrSessionClosed, KindSessionClosed},
	{ErrServiceFault, KindServiceFault},
	{ErrTransport, KindTransport},
	{ErrNotSupported, KindNotSupported},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrFileNotFound, KindFileNotFound},
}

// KindOf maps an error onto the ErrorKind taxonomy. Unknown errors are internal.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
