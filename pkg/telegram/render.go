package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fadedpez/numberledger/internal/bot"
)

// Incoming is an intent plus where to answer it
type Incoming struct {
	Intent     bot.Intent
	ChatID     int64
	CallbackID string
}

// IntentFromUpdate extracts the intent of a message or button press
func IntentFromUpdate(update tgbotapi.Update) (Incoming, bool) {
	if q := update.CallbackQuery; q != nil && q.From != nil {
		command, args := bot.ParseCallback(q.Data)
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return Incoming{
			Intent: bot.Intent{
				ActorID:   q.From.ID,
				Username:  q.From.UserName,
				FirstName: q.From.FirstName,
				Command:   command,
				Args:      args,
				Callback:  true,
			},
			ChatID:     chatID,
			CallbackID: q.ID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Incoming{}, false
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}

	intent := bot.Intent{
		ActorID:   msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		Text:      content,
	}
	intent.Command, intent.Args, intent.Rest = bot.ParseText(content)

	if len(msg.Photo) > 0 {
		// Largest size comes last
		intent.ProofRef = msg.Photo[len(msg.Photo)-1].FileID
	} else if msg.Document != nil {
		intent.ProofRef = msg.Document.FileID
	}

	// A captioned proof is free text even when the caption starts with a slash
	if intent.ProofRef != "" {
		intent.Command, intent.Args, intent.Rest = "", nil, ""
	}

	return Incoming{Intent: intent, ChatID: msg.Chat.ID}, true
}

// BuildMessage renders a reply as a text or photo message
func BuildMessage(chatID int64, reply bot.Reply) tgbotapi.Chattable {
	markup := replyMarkup(reply)

	var file tgbotapi.RequestFileData
	switch {
	case reply.PhotoRef != "":
		file = tgbotapi.FileID(reply.PhotoRef)
	case reply.PhotoPath != "":
		file = tgbotapi.FilePath(reply.PhotoPath)
	}

	if file != nil {
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = reply.Text
		photo.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		return photo
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}

// replyMarkup picks the inline keyboard when present, otherwise the menu
func replyMarkup(reply bot.Reply) interface{} {
	if len(reply.Buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Buttons))
		for _, row := range reply.Buttons {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	switch reply.Menu {
	case bot.MenuMain:
		return keyboard(bot.MainMenu())
	case bot.MenuBack:
		return keyboard(bot.BackMenu())
	}
	return nil
}

func keyboard(layout [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(layout))
	for _, labels := range layout {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}
