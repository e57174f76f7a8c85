package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/numberledger/internal/bot"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return &tgbotapi.APIResponse{Ok: true}, args.Error(0)
}

func (m *mockAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.ChatMember), args.Error(1)
}

func (m *mockAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {
	m.Called()
}

type handlerFunc func(ctx context.Context, intent bot.Intent) bot.Response

func (f handlerFunc) Handle(ctx context.Context, intent bot.Intent) bot.Response {
	return f(ctx, intent)
}

type TransportTestSuite struct {
	suite.Suite
	api       *mockAPI
	transport *Transport
}

func (s *TransportTestSuite) SetupTest() {
	s.api = &mockAPI{}
	s.transport = NewTransport(s.api, zerolog.Nop())
}

func (s *TransportTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func user(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, UserName: "buyer", FirstName: "Bo"}
}

func (s *TransportTestSuite) TestIntentFromCommand() {
	in, ok := IntentFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: user(100),
		Chat: &tgbotapi.Chat{ID: 100},
		Text: "/country tg1 united states",
	}})
	s.Require().True(ok)
	s.Equal(int64(100), in.ChatID)
	s.Equal(bot.CmdCountry, in.Intent.Command)
	s.Equal([]string{"tg1", "united", "states"}, in.Intent.Args)
	s.Equal("buyer", in.Intent.Username)
	s.False(in.Intent.Callback)
}

func (s *TransportTestSuite) TestIntentFromPhotoProof() {
	in, ok := IntentFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From:    user(100),
		Chat:    &tgbotapi.Chat{ID: 100},
		Caption: "UTR 12345 Bo",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "large", Width: 1280},
		},
	}})
	s.Require().True(ok)
	s.Equal("", in.Intent.Command)
	s.Equal("UTR 12345 Bo", in.Intent.Text)
	s.Equal("large", in.Intent.ProofRef)
}

func (s *TransportTestSuite) TestIntentFromCallback() {
	in, ok := IntentFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    user(2),
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 2}},
		Data:    "dep_approve:7",
	}})
	s.Require().True(ok)
	s.Equal("cb-1", in.CallbackID)
	s.Equal(bot.CmdDepApprove, in.Intent.Command)
	s.Equal([]string{"7"}, in.Intent.Args)
	s.True(in.Intent.Callback)
}

func (s *TransportTestSuite) TestIntentIgnoresOtherUpdates() {
	_, ok := IntentFromUpdate(tgbotapi.Update{UpdateID: 9})
	s.False(ok)

	_, ok = IntentFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi"}})
	s.False(ok)
}

func (s *TransportTestSuite) TestBuildMessageInlineButtons() {
	msg := BuildMessage(5, bot.Reply{
		Text: "Choose",
		Buttons: [][]bot.Button{
			{{Label: "India", Data: "country:tg1:india"}, {Label: "Join", URL: "https://t.me/x"}},
		},
		Menu: bot.MenuMain,
	})

	text, ok := msg.(tgbotapi.MessageConfig)
	s.Require().True(ok)
	s.Equal(int64(5), text.ChatID)
	s.Equal(tgbotapi.ModeHTML, text.ParseMode)

	markup, ok := text.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	s.Require().True(ok)
	s.Require().Len(markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	s.Require().Len(row, 2)
	s.Equal("country:tg1:india", *row[0].CallbackData)
	s.Equal("https://t.me/x", *row[1].URL)
}

func (s *TransportTestSuite) TestBuildMessageMenus() {
	msg := BuildMessage(5, bot.Reply{Text: "hi", Menu: bot.MenuMain})
	markup, ok := msg.(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	s.Require().True(ok)
	s.Len(markup.Keyboard, len(bot.MainMenu()))
	s.Equal(bot.BtnTG1, markup.Keyboard[0][0].Text)

	msg = BuildMessage(5, bot.Reply{Text: "hi", Menu: bot.MenuBack})
	markup = msg.(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	s.Equal(bot.BtnBack, markup.Keyboard[0][0].Text)

	msg = BuildMessage(5, bot.Reply{Text: "hi"})
	s.Nil(msg.(tgbotapi.MessageConfig).ReplyMarkup)
}

func (s *TransportTestSuite) TestBuildMessagePhoto() {
	msg := BuildMessage(5, bot.Reply{Text: "proof", PhotoRef: "file-1"})
	photo, ok := msg.(tgbotapi.PhotoConfig)
	s.Require().True(ok)
	s.Equal("proof", photo.Caption)
	s.Equal(tgbotapi.FileID("file-1"), photo.File)

	msg = BuildMessage(5, bot.Reply{Text: "scan", PhotoPath: "qr.png"})
	photo = msg.(tgbotapi.PhotoConfig)
	s.Equal(tgbotapi.FilePath("qr.png"), photo.File)
}

func (s *TransportTestSuite) TestHandleUpdateAnswersCallbackAndReplies() {
	s.transport.SetHandler(handlerFunc(func(ctx context.Context, intent bot.Intent) bot.Response {
		s.Equal(bot.CmdBuy, intent.Command)
		return bot.Response{
			Replies:   []bot.Reply{{Text: "bought"}},
			Alert:     "Purchased",
			ShowAlert: true,
		}
	}))

	s.api.On("Request", mock.MatchedBy(func(c tgbotapi.CallbackConfig) bool {
		return c.CallbackQueryID == "cb-2" && c.Text == "Purchased" && c.ShowAlert
	})).Return(nil).Once()
	s.api.On("Send", mock.MatchedBy(func(c tgbotapi.MessageConfig) bool {
		return c.ChatID == 100 && c.Text == "bought"
	})).Return(nil).Once()

	s.transport.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-2",
		From:    user(100),
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		Data:    "buy:3",
	}})
}

func (s *TransportTestSuite) TestHandleUpdateRecoversFromPanic() {
	s.transport.SetHandler(handlerFunc(func(ctx context.Context, intent bot.Intent) bot.Response {
		panic("boom")
	}))

	s.NotPanics(func() {
		s.transport.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
			From: user(100),
			Chat: &tgbotapi.Chat{ID: 100},
			Text: "/start",
		}})
	})
}

func (s *TransportTestSuite) TestRunStopsOnCancel() {
	updates := make(chan tgbotapi.Update, 1)
	handled := make(chan bot.Intent, 1)
	s.transport.SetHandler(handlerFunc(func(ctx context.Context, intent bot.Intent) bot.Response {
		handled <- intent
		return bot.Response{}
	}))

	s.api.On("GetUpdatesChan", mock.Anything).Return(tgbotapi.UpdatesChannel(updates)).Once()
	s.api.On("StopReceivingUpdates").Return().Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.transport.Run(ctx) }()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{From: user(100), Chat: &tgbotapi.Chat{ID: 100}, Text: "/profile"}}
	s.Equal(bot.CmdProfile, (<-handled).Command)

	cancel()
	s.NoError(<-done)
}

func (s *TransportTestSuite) TestRunRequiresHandler() {
	s.Error(s.transport.Run(context.Background()))
}

func (s *TransportTestSuite) TestNotify() {
	s.api.On("Send", mock.MatchedBy(func(c tgbotapi.MessageConfig) bool {
		return c.ChatID == 42 && c.Text == "otp"
	})).Return(nil).Once()

	s.NoError(s.transport.Notify(context.Background(), 42, bot.Reply{Text: "otp"}))
}

func (s *TransportTestSuite) TestGateStatuses() {
	gate := NewGate(s.api, "-1001234")
	s.Equal(int64(-1001234), gate.chatID)

	for status, want := range map[string]bool{
		"creator":       true,
		"administrator": true,
		"member":        true,
		"left":          false,
		"kicked":        false,
		"restricted":    false,
	} {
		s.api.On("GetChatMember", mock.MatchedBy(func(c tgbotapi.GetChatMemberConfig) bool {
			return c.UserID == 100
		})).Return(tgbotapi.ChatMember{Status: status}, nil).Once()

		ok, err := gate.IsMember(context.Background(), 100)
		s.NoError(err)
		s.Equal(want, ok, status)
	}
}

func (s *TransportTestSuite) TestGateUsername() {
	gate := NewGate(s.api, "mychannel")
	s.Equal("@mychannel", gate.username)
	s.Zero(gate.chatID)
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}
