package core

import (
	"context"

	"github.com/callo451/deskwise-remote/internal/domain"
)

// SessionAPI is the consumed interface of the session registry.
// End is idempotent on the server; callers may race it from explicit
// teardown and unmount cleanup.
type SessionAPI interface {
	List(ctx context.Context, assetID domain.AssetID, status domain.SessionStatus) ([]domain.RemoteSession, error)
	Create(ctx context.Context, assetID domain.AssetID) (domain.RemoteSession, error)
	End(ctx context.Context, id domain.SessionID, token string) error
}
