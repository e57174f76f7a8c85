// Package sessions keeps short-lived per-actor conversation state, such as a
// deposit waiting for its proof message.
package sessions

import (
	"context"
	"time"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// Session is an open deposit capture for one actor
type Session struct {
	ActorID   int64               `json:"actor_id"`
	Wallet    entities.WalletName `json:"wallet"`
	StartedAt time.Time           `json:"started_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Store holds at most one session per actor
type Store interface {
	// Begin opens or replaces the actor's session
	Begin(ctx context.Context, actorID int64, wallet entities.WalletName) (*Session, error)

	// Get returns the actor's live session, nil when none or expired
	Get(ctx context.Context, actorID int64) (*Session, error)

	// End removes the actor's session, if any
	End(ctx context.Context, actorID int64) error
}
