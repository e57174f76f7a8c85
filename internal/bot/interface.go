package bot

import (
	"context"

	"github.com/fadedpez/numberledger/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock

// Notifier delivers a reply to an actor other than the one being answered
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, reply Reply) error
}

// MembershipGate reports whether an actor joined the required channel
type MembershipGate interface {
	IsMember(ctx context.Context, actorID int64) (bool, error)
}

// UserStore records who has talked to the bot
type UserStore interface {
	UpsertUser(ctx context.Context, user *entities.User) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Handler turns an intent into a response. Transports drive one.
type Handler interface {
	Handle(ctx context.Context, intent Intent) Response
}
