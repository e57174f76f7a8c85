package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// memberStatuses are the chat member states that count as joined
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// Gate checks channel membership with getChatMember
type Gate struct {
	api      API
	chatID   int64
	username string
}

// NewGate builds a gate for a numeric chat id or an @channel username
func NewGate(api API, chat string) *Gate {
	chat = strings.TrimSpace(chat)
	gate := &Gate{api: api}
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		gate.chatID = id
	} else {
		if !strings.HasPrefix(chat, "@") {
			chat = "@" + chat
		}
		gate.username = chat
	}
	return gate
}

// IsMember implements bot.MembershipGate
func (g *Gate) IsMember(ctx context.Context, actorID int64) (bool, error) {
	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             g.chatID,
			SuperGroupUsername: g.username,
			UserID:             actorID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d: %w", actorID, err)
	}
	return memberStatuses[member.Status], nil
}
