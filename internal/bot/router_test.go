package bot_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/fadedpez/numberledger/internal/bot"
	botmock "github.com/fadedpez/numberledger/internal/bot/mock"
	"github.com/fadedpez/numberledger/pkg/entities"
	ledgerRepo "github.com/fadedpez/numberledger/pkg/repositories/ledger"
	"github.com/fadedpez/numberledger/pkg/services/inventory"
	"github.com/fadedpez/numberledger/pkg/services/ledger"
	"github.com/fadedpez/numberledger/pkg/services/statistics"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
	"github.com/fadedpez/numberledger/pkg/sessions"
)

const (
	ownerID    int64 = 1
	reviewerID int64 = 2
	buyerID    int64 = 100
	outsiderID int64 = 200
	flakyID    int64 = 300
)

type RouterTestSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	notifier *botmock.MockNotifier
	gate     *botmock.MockMembershipGate
	repo     *ledgerRepo.MemoryRepository
	sessions *sessions.MemoryStore
	router   *bot.Router
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.notifier = botmock.NewMockNotifier(s.ctrl)
	s.gate = botmock.NewMockMembershipGate(s.ctrl)
	s.repo = ledgerRepo.NewMemoryRepository()
	s.sessions = sessions.NewMemoryStore(15 * time.Minute)

	s.gate.EXPECT().IsMember(gomock.Any(), buyerID).Return(true, nil).AnyTimes()

	s.router = s.newRouter(bot.Options{})
}

func (s *RouterTestSuite) newRouter(opts bot.Options) *bot.Router {
	rules := wallet.DefaultRules()
	log := zerolog.Nop()

	opts.OwnerIDs = []int64{ownerID}
	opts.ReviewOwnerID = reviewerID
	opts.WalletRules = rules
	opts.BrandName = "Test Store"
	opts.DefaultPassword = "1010"

	return bot.NewRouter(bot.Services{
		Ledger:     ledger.NewCoordinator(s.repo, wallet.NewAllocator(rules), log, nil),
		Wallets:    wallet.NewService(s.repo, rules, log),
		Inventory:  inventory.NewService(s.repo, rules, log),
		Statistics: statistics.NewService(s.repo),
		Users:      s.repo,
		Sessions:   s.sessions,
	}, s.notifier, s.gate, opts, log, nil)
}

func (s *RouterTestSuite) send(actorID int64, message string) bot.Response {
	command, args, rest := bot.ParseText(message)
	return s.router.Handle(s.ctx, bot.Intent{
		ActorID:   actorID,
		FirstName: "Tester",
		Command:   command,
		Args:      args,
		Rest:      rest,
		Text:      message,
	})
}

func (s *RouterTestSuite) press(actorID int64, data string) bot.Response {
	command, args := bot.ParseCallback(data)
	return s.router.Handle(s.ctx, bot.Intent{
		ActorID:  actorID,
		Command:  command,
		Args:     args,
		Callback: true,
	})
}

func (s *RouterTestSuite) text(resp bot.Response) string {
	parts := make([]string, 0, len(resp.Replies))
	for _, reply := range resp.Replies {
		parts = append(parts, reply.Text)
	}
	return strings.Join(parts, "\n")
}

func (s *RouterTestSuite) TestParseText() {
	testCases := []struct {
		name    string
		message string
		command string
		args    []string
		rest    string
	}{
		{name: "Menu label", message: bot.BtnTG2, command: bot.CmdStock, args: []string{"tg2"}},
		{name: "Back label", message: bot.BtnBack, command: bot.CmdCancel},
		{name: "Slash with bot name", message: "/Buy@numberbot 12", command: bot.CmdBuy, args: []string{"12"}, rest: "12"},
		{name: "Rest keeps layout", message: "/broadcast hello\nworld", command: bot.CmdBroadcast, args: []string{"hello", "world"}, rest: "hello\nworld"},
		{name: "Plain text", message: "UTR 12345 paid", command: ""},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			command, args, rest := bot.ParseText(tc.message)
			s.Equal(tc.command, command)
			s.Equal(tc.args, args)
			s.Equal(tc.rest, rest)
		})
	}
}

func (s *RouterTestSuite) TestCallbackData() {
	command, args := bot.ParseCallback(bot.CallbackData(bot.CmdCountry, "tg1", "united states"))
	s.Equal(bot.CmdCountry, command)
	s.Equal([]string{"tg1", "united states"}, args)
}

func (s *RouterTestSuite) TestStartRegistersUser() {
	resp := s.send(buyerID, "/start")

	s.Require().Len(resp.Replies, 1)
	s.Contains(resp.Replies[0].Text, "WELCOME to Test Store")
	s.Equal(bot.MenuMain, resp.Replies[0].Menu)

	ids, err := s.repo.ListUserIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{buyerID}, ids)
}

func (s *RouterTestSuite) TestMembershipGate() {
	s.gate.EXPECT().IsMember(gomock.Any(), outsiderID).Return(false, nil).Times(2)

	resp := s.send(outsiderID, "/profile")
	s.Contains(s.text(resp), "Please join our channel first")
	s.Equal(bot.CmdCheckJoin, resp.Replies[0].Buttons[len(resp.Replies[0].Buttons)-1][0].Data)

	resp = s.press(outsiderID, bot.CmdCheckJoin)
	s.Empty(resp.Replies)
	s.True(resp.ShowAlert)
	s.Equal("Join the channel first.", resp.Alert)
}

func (s *RouterTestSuite) TestGateErrorLetsActorThrough() {
	s.gate.EXPECT().IsMember(gomock.Any(), flakyID).Return(false, errors.New("telegram down"))

	resp := s.send(flakyID, "/profile")
	s.Contains(s.text(resp), "Profile")
}

func (s *RouterTestSuite) TestOwnersSkipGate() {
	// No IsMember expectation for the owner: gomock fails the test if it is called
	resp := s.send(ownerID, "/profile")
	s.Contains(s.text(resp), "Profile")
}

func (s *RouterTestSuite) TestBrowseAndBuy() {
	resp := s.send(ownerID, "/addaccount tg1 +15550001 usa 25")
	s.Contains(s.text(resp), "Added Telegram TG1 number")

	resp = s.send(buyerID, bot.BtnTG1)
	s.Require().Len(resp.Replies, 2)
	s.Contains(resp.Replies[0].Text, "Usa: ₹25.00 - Stock: 1")
	countryData := resp.Replies[1].Buttons[0][0].Data
	s.Equal("country:tg1:usa", countryData)

	resp = s.press(buyerID, countryData)
	s.Require().Len(resp.Replies, 1)
	s.Contains(resp.Replies[0].Text, "Price: ₹25.00")
	buyData := resp.Replies[0].Buttons[0][0].Data

	// No funds yet
	resp = s.press(buyerID, buyData)
	s.Contains(s.text(resp), "Insufficient deposit balance")
	s.Contains(s.text(resp), "Wallet 2: ₹0.00")

	resp = s.send(ownerID, "/credit 100 wallet_2 30")
	s.Contains(s.text(resp), "Balance credited. User 100 Wallet 2: ₹30.00")

	resp = s.press(buyerID, buyData)
	s.Contains(s.text(resp), "Purchase successful")
	s.Contains(s.text(resp), "<code>+15550001</code>")
	s.Contains(s.text(resp), "balance ₹5.00")
	s.Equal("Purchased", resp.Alert)

	resp = s.press(buyerID, buyData)
	s.Equal("This account is no longer available.", s.text(resp))

	resp = s.send(buyerID, "/stock tg1")
	s.Contains(s.text(resp), "No Telegram TG1 stock is available right now.")
}

func (s *RouterTestSuite) TestDepositApproveAndCredit() {
	resp := s.send(buyerID, bot.BtnDeposit)
	s.Require().Len(resp.Replies, 1)
	s.Len(resp.Replies[0].Buttons[0], 2)

	resp = s.press(buyerID, bot.CallbackData(bot.CmdDepositWallet, "wallet_1"))
	s.Contains(s.text(resp), "Top up Wallet 1")
	s.Equal(bot.MenuBack, resp.Replies[0].Menu)

	var review bot.Reply
	s.notifier.EXPECT().Notify(gomock.Any(), reviewerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, reply bot.Reply) error {
			review = reply
			return nil
		})

	resp = s.router.Handle(s.ctx, bot.Intent{ActorID: buyerID, FirstName: "Tester", Text: "UTR 998877", ProofRef: "photo-1"})
	s.Contains(s.text(resp), "Deposit request submitted")
	s.Contains(review.Text, "UTR 998877")
	s.Equal("photo-1", review.PhotoRef)
	s.Equal("dep_approve:1", review.Buttons[0][0].Data)

	session, err := s.sessions.Get(s.ctx, buyerID)
	s.Require().NoError(err)
	s.Nil(session, "session ends once the proof is captured")

	resp = s.press(reviewerID, review.Buttons[0][0].Data)
	s.Contains(s.text(resp), "Approved Deposit ID")
	s.Equal("Approved", resp.Alert)

	resp = s.press(reviewerID, review.Buttons[1][0].Data)
	s.Empty(resp.Replies)
	s.Equal("Already reviewed or invalid request.", resp.Alert)

	s.notifier.EXPECT().Notify(gomock.Any(), buyerID, gomock.Any()).Return(nil)
	resp = s.send(reviewerID, "/add 1 50")
	s.Contains(s.text(resp), "Added ₹50.00 to Deposit ID 1 (User 100, Wallet 1)")

	resp = s.send(reviewerID, "/add 1 50")
	s.Equal("This deposit request is already credited.", s.text(resp))

	resp = s.send(buyerID, bot.BtnProfile)
	s.Contains(s.text(resp), "Wallet 1: ₹50.00")
	s.Contains(s.text(resp), "Wallet 2: ₹0.00")
}

func (s *RouterTestSuite) TestDepositDenyNotifiesUser() {
	s.press(buyerID, bot.CallbackData(bot.CmdDepositWallet, "wallet_2"))
	s.notifier.EXPECT().Notify(gomock.Any(), reviewerID, gomock.Any()).Return(nil)
	s.router.Handle(s.ctx, bot.Intent{ActorID: buyerID, ProofRef: "photo-2"})

	s.notifier.EXPECT().Notify(gomock.Any(), buyerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, reply bot.Reply) error {
			s.Contains(reply.Text, "deposit request 1 was denied")
			return nil
		})

	resp := s.send(ownerID, "/dep_deny 1")
	s.Contains(s.text(resp), "denied")

	resp = s.send(ownerID, "/dep_deny 1")
	s.Contains(s.text(resp), "Already reviewed")
}

func (s *RouterTestSuite) TestDepositCancel() {
	s.press(buyerID, bot.CallbackData(bot.CmdDepositWallet, "wallet_1"))

	resp := s.send(buyerID, bot.BtnBack)
	s.Equal("Back to main menu.", s.text(resp))

	// Free text no longer becomes a deposit
	resp = s.send(buyerID, "hello")
	s.Equal("Choose an option from the panel below.", s.text(resp))
}

func (s *RouterTestSuite) TestUnknownWalletRejected() {
	resp := s.press(buyerID, bot.CallbackData(bot.CmdDepositWallet, "wallet_9"))
	s.Contains(s.text(resp), `unknown wallet &#34;wallet_9&#34;`)
}

func (s *RouterTestSuite) TestUnauthorizedAdminIntentsAreDropped() {
	testCases := []struct {
		name    string
		actorID int64
		message string
	}{
		{name: "User credit", actorID: buyerID, message: "/credit 100 wallet_1 999"},
		{name: "User approve", actorID: buyerID, message: "/dep_approve 1"},
		{name: "Reviewer credit", actorID: reviewerID, message: "/credit 100 wallet_1 999"},
		{name: "Reviewer broadcast", actorID: reviewerID, message: "/broadcast hi"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp := s.send(tc.actorID, tc.message)
			s.Empty(resp.Replies)
			s.Empty(resp.Alert)
		})
	}

	wallets, err := s.repo.GetWallets(s.ctx, buyerID)
	s.Require().NoError(err)
	for _, name := range wallets.Names() {
		s.True(wallets.Balance(name).IsZero(), "wallet %s", name)
	}
}

func (s *RouterTestSuite) TestAddDepositValidation() {
	s.Equal("Usage: /add <deposit_id> <amount>", s.text(s.send(ownerID, "/add 1")))
	s.Equal("Invalid deposit id or amount.", s.text(s.send(ownerID, "/add x 5")))
	s.Equal("Deposit request not found.", s.text(s.send(ownerID, "/add 42 5")))
	s.Equal("Amount must be greater than 0.", s.text(s.send(ownerID, "/add 42 0")))
}

func (s *RouterTestSuite) TestSetOTP() {
	s.send(ownerID, "/addnum +15550002 india 10")
	s.send(ownerID, "/credit 100 wallet_2 10")
	unit, err := s.repo.FirstAvailable(s.ctx, entities.AccountTypeTG1, "india")
	s.Require().NoError(err)
	s.Contains(s.text(s.press(buyerID, bot.CallbackData(bot.CmdBuy, strconv.FormatInt(unit.ID, 10)))), "Purchase successful")

	s.notifier.EXPECT().Notify(gomock.Any(), buyerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, reply bot.Reply) error {
			s.Contains(reply.Text, "<code>4321</code>")
			return nil
		})
	s.Equal("OTP pushed to user instantly.", s.text(s.send(ownerID, "/setotp +15550002 4321")))

	s.notifier.EXPECT().Notify(gomock.Any(), buyerID, gomock.Any()).Return(errors.New("blocked"))
	s.Contains(s.text(s.send(ownerID, "/setotp +15550002 9999")), "delivery to the user failed")

	s.Equal("No purchase found for that number.", s.text(s.send(ownerID, "/setotp +19999999 1")))
}

func (s *RouterTestSuite) TestProblems() {
	s.Equal("Usage: /problem <your issue>", s.text(s.send(buyerID, "/problem")))
	s.Contains(s.text(s.send(buyerID, "/problem OTP never <arrived>")), "Problem #1 submitted")

	resp := s.send(ownerID, "/problems")
	s.Contains(s.text(resp), "#1 user 100: OTP never &lt;arrived&gt;")

	s.Equal("Problem closed.", s.text(s.send(ownerID, "/solve 1")))
	s.Equal("Problem not found.", s.text(s.send(ownerID, "/solve 1")))
	s.Equal("No open problems.", s.text(s.send(ownerID, "/problems")))
}

func (s *RouterTestSuite) TestStats() {
	s.send(ownerID, "/addaccount whatsapp +15550003 brazil 7")
	s.send(ownerID, "/addaccount whatsapp +15550004 brazil 9")
	s.send(ownerID, "/credit 100 wallet_1 7")
	s.press(buyerID, bot.CallbackData(bot.CmdBuy, "1"))

	resp := s.send(ownerID, "/stats")
	s.Contains(s.text(resp), "Sold: 1 for ₹7.00")
	s.Contains(s.text(resp), "- WhatsApp: 1 available")
}

func (s *RouterTestSuite) TestBroadcast() {
	s.gate.EXPECT().IsMember(gomock.Any(), outsiderID).Return(true, nil).AnyTimes()
	s.send(buyerID, "/start")
	s.send(outsiderID, "/start")

	s.notifier.EXPECT().Notify(gomock.Any(), ownerID, gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(gomock.Any(), buyerID, gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(gomock.Any(), outsiderID, gomock.Any()).Return(errors.New("bot blocked"))

	resp := s.send(ownerID, "/broadcast New stock tonight")
	s.Equal("Broadcast done. Sent to 2/3 users.", s.text(resp))
}

func (s *RouterTestSuite) TestThrottle() {
	s.router = s.newRouter(bot.Options{IntentRate: 0.001, IntentBurst: 1})

	s.Contains(s.text(s.send(buyerID, "/start")), "WELCOME")
	s.Contains(s.text(s.send(buyerID, "/start")), "Too many requests")

	// Owners are never throttled
	s.Contains(s.text(s.send(ownerID, "/start")), "WELCOME")
	s.Contains(s.text(s.send(ownerID, "/start")), "WELCOME")
}

func (s *RouterTestSuite) TestUnknownCommand() {
	resp := s.send(buyerID, "/teleport")
	s.Contains(s.text(resp), "Unknown command")
	s.Equal(bot.MenuMain, resp.Replies[0].Menu)
}
