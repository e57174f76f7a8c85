// Package telegram connects the router to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/fadedpez/numberledger/internal/bot"
)

// API is the part of tgbotapi.BotAPI the transport uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Transport long-polls Telegram and answers every update in its own goroutine
type Transport struct {
	api     API
	handler bot.Handler
	log     zerolog.Logger
	timeout int
}

// NewBotAPI connects to Telegram with a bot token
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram client: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// NewTransport wraps an API client. The handler is set later with SetHandler
// because the router needs the transport as its notifier.
func NewTransport(api API, log zerolog.Logger) *Transport {
	return &Transport{api: api, log: log, timeout: 60}
}

// SetHandler installs the intent handler
func (t *Transport) SetHandler(handler bot.Handler) {
	t.handler = handler
}

// Run polls for updates until ctx ends, then waits for in-flight handlers
func (t *Transport) Run(ctx context.Context) error {
	if t.handler == nil {
		return fmt.Errorf("telegram transport has no handler")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.timeout
	updates := t.api.GetUpdatesChan(cfg)

	var wg sync.WaitGroup
	defer wg.Wait()

	t.log.Info().Msg("telegram transport started")
	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.log.Info().Msg("telegram transport stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches one update and sends the response
func (t *Transport) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
		}
	}()

	in, ok := IntentFromUpdate(update)
	if !ok {
		return
	}

	resp := t.handler.Handle(ctx, in.Intent)

	if in.CallbackID != "" {
		answer := tgbotapi.NewCallback(in.CallbackID, resp.Alert)
		answer.ShowAlert = resp.ShowAlert
		if _, err := t.api.Request(answer); err != nil {
			t.log.Warn().Err(err).Msg("failed to answer callback")
		}
	}

	for _, reply := range resp.Replies {
		if _, err := t.api.Send(BuildMessage(in.ChatID, reply)); err != nil {
			t.log.Warn().Err(err).Int64("chat_id", in.ChatID).Msg("failed to send reply")
		}
	}
}

// Notify implements bot.Notifier by messaging the recipient's private chat
func (t *Transport) Notify(ctx context.Context, recipientID int64, reply bot.Reply) error {
	if _, err := t.api.Send(BuildMessage(recipientID, reply)); err != nil {
		return fmt.Errorf("send to %d: %w", recipientID, err)
	}
	return nil
}
