package chat

import (
	"context"
	"time"

	"github.com/kailas-cloud/docassist/internal/transport/sse"
	"github.com/kailas-cloud/docassist/internal/transport/stream"
)

// Streamer opens streaming sessions.
type Streamer interface {
	Start(ctx context.Context, path string, body any, cb sse.Callbacks, timeout time.Duration) *stream.Handle
}
