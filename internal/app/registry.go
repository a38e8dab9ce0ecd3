package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/domain"
)

// SessionRegistry tracks one record per remote-control session and
// enforces the single-active-session-per-asset invariant. The ICE server
// list is issued at creation and never changes for the session.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.RemoteSession
	byAsset  map[domain.AssetID]domain.SessionID
	ice      []domain.ICEServer
}

func NewSessionRegistry(ice []domain.ICEServer) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.SessionID]*domain.RemoteSession),
		byAsset:  make(map[domain.AssetID]domain.SessionID),
		ice:      ice,
	}
}

// Create registers a new active session for the asset. Fails with
// domain.ErrConflict while another active session holds the asset.
func (r *SessionRegistry) Create(assetID domain.AssetID) (domain.RemoteSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sid, ok := r.byAsset[assetID]; ok {
		if s, ok := r.sessions[sid]; ok && s.Status == domain.StatusActive {
			return domain.RemoteSession{}, domain.ErrConflict
		}
	}

	sess := &domain.RemoteSession{
		ID:         domain.SessionID(uuid.NewString()),
		AssetID:    assetID,
		Token:      uuid.NewString(),
		ICEServers: r.ice,
		Status:     domain.StatusActive,
	}
	r.sessions[sess.ID] = sess
	r.byAsset[assetID] = sess.ID
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("asset", string(assetID)).Msg("created session")
	return *sess, nil
}

// End transitions the session to ended and frees the asset slot.
// Idempotent: ending an unknown or already-ended session succeeds.
func (r *SessionRegistry) End(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status == domain.StatusEnded {
		return
	}
	s.Status = domain.StatusEnded
	if r.byAsset[s.AssetID] == id {
		delete(r.byAsset, s.AssetID)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("ended session")
}

// List returns sessions matching the filter; empty filter values match all.
func (r *SessionRegistry) List(assetID domain.AssetID, status domain.SessionStatus) []domain.RemoteSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RemoteSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if assetID != "" && s.AssetID != assetID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// Get returns a snapshot of one session.
func (r *SessionRegistry) Get(id domain.SessionID) (domain.RemoteSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.RemoteSession{}, false
	}
	return *s, true
}

// Authorize validates the bearer token for a signalling call. An ended
// session's token no longer authorizes anything.
func (r *SessionRegistry) Authorize(id domain.SessionID, token string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if token == "" || token != s.Token {
		return domain.ErrUnauthorized
	}
	if s.Status == domain.StatusEnded {
		return domain.ErrUnauthorized
	}
	return nil
}
