package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/fadedpez/numberledger/internal/bot"
)

// Transport serves slash commands, button presses and direct messages
type Transport struct {
	session SessionHandler
	handler bot.Handler
	appID   string
	guildID string
	log     zerolog.Logger
	ctx     context.Context
	remove  []func()
}

// NewTransport wraps a session. The handler is set later with SetHandler.
func NewTransport(session SessionHandler, appID, guildID string, log zerolog.Logger) *Transport {
	return &Transport{
		session: session,
		appID:   appID,
		guildID: guildID,
		log:     log,
		ctx:     context.Background(),
	}
}

// SetHandler installs the intent handler
func (t *Transport) SetHandler(handler bot.Handler) {
	t.handler = handler
}

// Run connects, registers commands and serves until ctx ends
func (t *Transport) Run(ctx context.Context) error {
	if t.handler == nil {
		return fmt.Errorf("discord transport has no handler")
	}
	t.ctx = ctx

	t.remove = append(t.remove,
		t.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			t.HandleInteraction(t.ctx, i)
		}),
		t.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			t.HandleMessage(t.ctx, m)
		}),
	)

	if err := t.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if _, err := t.session.ApplicationCommandBulkOverwrite(t.appID, t.guildID, ApplicationCommands()); err != nil {
		t.close()
		return fmt.Errorf("error registering commands: %w", err)
	}
	t.log.Info().Str("guild_id", t.guildID).Msg("discord transport started")

	<-ctx.Done()
	t.log.Info().Msg("discord transport stopping")
	t.close()
	return nil
}

func (t *Transport) close() {
	for _, remove := range t.remove {
		remove()
	}
	t.remove = nil
	if err := t.session.Close(); err != nil {
		t.log.Warn().Err(err).Msg("error closing connection")
	}
}

// HandleInteraction answers a slash command or a button press
func (t *Transport) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	intent, ok := IntentFromInteraction(i)
	if !ok {
		return
	}
	resp := t.handler.Handle(ctx, intent)

	if len(resp.Replies) == 0 {
		var err error
		switch {
		case resp.Alert != "":
			err = SendResponse(t.session, i, NewEphemeralResponse(resp.Alert, nil))
		case intent.Callback:
			err = Acknowledge(t.session, i)
		default:
			err = SendResponse(t.session, i, NewEphemeralResponse("🚫 Not available.", nil))
		}
		if err != nil {
			t.log.Warn().Err(err).Str("command", intent.Command).Msg("failed to answer interaction")
		}
		return
	}

	for n, reply := range resp.Replies {
		r, err := FromReply(reply)
		if err != nil {
			t.log.Warn().Err(err).Msg("failed to render reply")
			r = NewResponse(Markdown(reply.Text), nil)
		}
		if n == 0 {
			err = SendResponse(t.session, i, r)
		} else {
			err = SendMessage(t.session, i.ChannelID, r)
		}
		if err != nil {
			t.log.Warn().Err(err).Str("command", intent.Command).Msg("failed to send reply")
		}
	}
}

// HandleMessage treats a direct message as free text, typically deposit proof
func (t *Transport) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	intent, ok := IntentFromMessage(m)
	if !ok {
		return
	}
	resp := t.handler.Handle(ctx, intent)
	for _, reply := range resp.Replies {
		if err := t.send(m.ChannelID, reply); err != nil {
			t.log.Warn().Err(err).Str("channel_id", m.ChannelID).Msg("failed to send reply")
		}
	}
}

// Notify implements bot.Notifier through a direct message channel
func (t *Transport) Notify(ctx context.Context, recipientID int64, reply bot.Reply) error {
	channel, err := t.session.UserChannelCreate(strconv.FormatInt(recipientID, 10))
	if err != nil {
		return fmt.Errorf("open dm with %d: %w", recipientID, err)
	}
	return t.send(channel.ID, reply)
}

func (t *Transport) send(channelID string, reply bot.Reply) error {
	r, err := FromReply(reply)
	if err != nil {
		return err
	}
	return SendMessage(t.session, channelID, r)
}

// IntentFromInteraction extracts the intent of a slash command or button press
func IntentFromInteraction(i *discordgo.InteractionCreate) (bot.Intent, bool) {
	if i == nil || i.Interaction == nil {
		return bot.Intent{}, false
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	intent, ok := actor(user)
	if !ok {
		return bot.Intent{}, false
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		intent.Command = data.Name
		for _, opt := range data.Options {
			if opt.Name == argsOption {
				intent.Rest = strings.TrimSpace(opt.StringValue())
			}
		}
		intent.Args = strings.Fields(intent.Rest)
		intent.Text = strings.TrimSpace("/" + data.Name + " " + intent.Rest)
	case discordgo.InteractionMessageComponent:
		intent.Command, intent.Args = bot.ParseCallback(i.MessageComponentData().CustomID)
		intent.Callback = true
	default:
		return bot.Intent{}, false
	}
	return intent, true
}

// IntentFromMessage extracts free text from a direct message
func IntentFromMessage(m *discordgo.MessageCreate) (bot.Intent, bool) {
	if m == nil || m.Message == nil || m.GuildID != "" {
		return bot.Intent{}, false
	}
	if m.Author == nil || m.Author.Bot {
		return bot.Intent{}, false
	}
	intent, ok := actor(m.Author)
	if !ok {
		return bot.Intent{}, false
	}

	intent.Text = m.Content
	for _, a := range m.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			intent.ProofRef = a.URL
			break
		}
	}
	if intent.ProofRef == "" {
		intent.Command, intent.Args, intent.Rest = bot.ParseText(m.Content)
	}
	return intent, true
}

func actor(user *discordgo.User) (bot.Intent, bool) {
	if user == nil {
		return bot.Intent{}, false
	}
	id, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return bot.Intent{}, false
	}
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	return bot.Intent{ActorID: id, Username: user.Username, FirstName: name}, true
}
