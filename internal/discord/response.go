package discord

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/fadedpez/numberledger/internal/bot"
)

// Discord component limits
const (
	maxRows          = 5
	maxButtonsPerRow = 5
)

var markdown = strings.NewReplacer(
	"<b>", "**",
	"</b>", "**",
	"<code>", "`",
	"</code>", "`",
)

// Response represents a Discord message built from a bot reply
type Response struct {
	Content    string
	Components []discordgo.MessageComponent
	Embeds     []*discordgo.MessageEmbed
	Files      []*discordgo.File
	Ephemeral  bool
}

// NewResponse creates a new Response
func NewResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  false,
	}
}

// NewEphemeralResponse creates a new ephemeral Response (only visible to the user)
func NewEphemeralResponse(content string, components []discordgo.MessageComponent) *Response {
	return &Response{
		Content:    content,
		Components: components,
		Ephemeral:  true,
	}
}

// Markdown converts the HTML subset replies use into Discord markdown
func Markdown(text string) string {
	return html.UnescapeString(markdown.Replace(text))
}

// FromReply renders a bot reply. Menus become button rows since Discord has
// no persistent keyboard.
func FromReply(reply bot.Reply) (*Response, error) {
	resp := NewResponse(Markdown(reply.Text), components(reply))

	switch {
	case reply.PhotoRef != "":
		resp.Embeds = []*discordgo.MessageEmbed{{Image: &discordgo.MessageEmbedImage{URL: reply.PhotoRef}}}
	case reply.PhotoPath != "":
		data, err := os.ReadFile(reply.PhotoPath)
		if err != nil {
			return nil, fmt.Errorf("read photo %s: %w", reply.PhotoPath, err)
		}
		resp.Files = []*discordgo.File{{
			Name:   filepath.Base(reply.PhotoPath),
			Reader: bytes.NewReader(data),
		}}
	}
	return resp, nil
}

func components(reply bot.Reply) []discordgo.MessageComponent {
	if len(reply.Buttons) > 0 {
		return buttonRows(reply.Buttons)
	}

	var layout [][]string
	switch reply.Menu {
	case bot.MenuMain:
		layout = bot.MainMenu()
	case bot.MenuBack:
		layout = bot.BackMenu()
	default:
		return nil
	}

	rows := make([][]bot.Button, 0, len(layout))
	for _, labels := range layout {
		row := make([]bot.Button, 0, len(labels))
		for _, label := range labels {
			command, args, _ := bot.ParseText(label)
			row = append(row, bot.Button{Label: label, Data: bot.CallbackData(command, args...)})
		}
		rows = append(rows, row)
	}
	return buttonRows(rows)
}

func buttonRows(rows [][]bot.Button) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		if len(out) == maxRows {
			break
		}
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			if len(buttons) == maxButtonsPerRow {
				break
			}
			if b.URL != "" {
				buttons = append(buttons, discordgo.Button{Label: b.Label, Style: discordgo.LinkButton, URL: b.URL})
			} else {
				buttons = append(buttons, discordgo.Button{Label: b.Label, Style: discordgo.PrimaryButton, CustomID: b.Data})
			}
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

// SendResponse sends a response to a Discord interaction
func SendResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: r.interactionData(),
	})
}

// Acknowledge answers a component interaction without changing anything
func Acknowledge(s SessionHandler, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// SendMessage posts a response as a plain channel message
func SendMessage(s SessionHandler, channelID string, r *Response) error {
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    r.Content,
		Components: r.Components,
		Embeds:     r.Embeds,
		Files:      r.Files,
	})
	return err
}

func (r *Response) interactionData() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    r.Content,
		Components: r.Components,
		Embeds:     r.Embeds,
		Files:      r.Files,
		Flags:      getFlags(r.Ephemeral),
	}
}

// Helper functions

func getFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
