package publishers

import "context"

// Publisher hands a transcribed episode to a downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
