package core

import (
	"context"

	"github.com/callo451/deskwise-remote/internal/domain"
)

// SignalTransport is one side's view of the append-only signalling log,
// bound to a single session and role. Publish appends; FetchSince returns
// messages authored by the other role newer than the cursor, in timestamp
// order. A swap to a push transport only has to replace the poll loop
// driving FetchSince.
type SignalTransport interface {
	Publish(ctx context.Context, typ domain.SignalType, data any) error
	FetchSince(ctx context.Context, since int64) ([]domain.SignalMessage, error)
}
