package ports

import (
	"context"
)

// ResourceLoader turns a stream URL into an encoded track the audio node can play.
type ResourceLoader interface {
	LoadResource(ctx context.Context, streamURL string) (encoded string, err error)
}
