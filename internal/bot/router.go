package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fadedpez/numberledger/internal/config"
	"github.com/fadedpez/numberledger/internal/logging"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/metrics"
	"github.com/fadedpez/numberledger/pkg/services/inventory"
	"github.com/fadedpez/numberledger/pkg/services/ledger"
	"github.com/fadedpez/numberledger/pkg/services/statistics"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
	"github.com/fadedpez/numberledger/pkg/sessions"
)

// ProblemListLimit caps the problems command output
const ProblemListLimit = 20

// Services are the collaborators the router drives
type Services struct {
	Ledger     *ledger.Coordinator
	Wallets    *wallet.Service
	Inventory  *inventory.Service
	Statistics *statistics.Service
	Users      UserStore
	Sessions   sessions.Store
}

// Options holds the presentation and access settings of the router
type Options struct {
	OwnerIDs      []int64
	ReviewOwnerID int64
	WalletRules   wallet.Rules

	BrandName       string
	SupportLink     string
	HowToUseLink    string
	DefaultPassword string
	DepositQRPath   string
	ForceJoinLink   string

	IntentRate       float64
	IntentBurst      int
	BroadcastRate    float64
	BroadcastWorkers int
}

// OptionsFromConfig copies the router settings out of the process config
func OptionsFromConfig(cfg *config.Config, rules wallet.Rules) Options {
	return Options{
		OwnerIDs:        cfg.OwnerIDs,
		ReviewOwnerID:   cfg.ReviewOwnerID(),
		WalletRules:     rules,
		BrandName:       cfg.BrandName,
		SupportLink:     cfg.SupportLink,
		HowToUseLink:    cfg.HowToUseLink,
		DefaultPassword: cfg.DefaultPassword,
		DepositQRPath:   cfg.DepositQRPath,
		ForceJoinLink:   cfg.ForceJoinChannelLink,
		IntentRate:      cfg.IntentRate,
		IntentBurst:     5,
		BroadcastRate:   cfg.BroadcastRate,
	}
}

type handlerFunc func(ctx context.Context, intent Intent) (Response, error)

// Router authorizes intents and dispatches them to their handlers
type Router struct {
	svc         Services
	notifier    Notifier
	gate        MembershipGate
	opts        Options
	owners      map[int64]bool
	throttle    *Throttle
	broadcaster *Broadcaster
	log         zerolog.Logger
	metrics     *metrics.Ledger

	userHandlers  map[string]handlerFunc
	adminHandlers map[string]handlerFunc
}

// NewRouter creates a router. gate and m may be nil.
func NewRouter(svc Services, notifier Notifier, gate MembershipGate, opts Options, log zerolog.Logger, m *metrics.Ledger) *Router {
	if opts.WalletRules == nil {
		opts.WalletRules = wallet.DefaultRules()
	}

	r := &Router{
		svc:         svc,
		notifier:    notifier,
		gate:        gate,
		opts:        opts,
		owners:      make(map[int64]bool, len(opts.OwnerIDs)),
		throttle:    NewThrottle(opts.IntentRate, opts.IntentBurst),
		broadcaster: NewBroadcaster(notifier, opts.BroadcastRate, opts.BroadcastWorkers, log),
		log:         log,
		metrics:     m,
	}
	for _, id := range opts.OwnerIDs {
		r.owners[id] = true
	}

	r.userHandlers = map[string]handlerFunc{
		CmdStart:         r.handleStart,
		CmdStock:         r.handleStock,
		CmdCountry:       r.handleCountry,
		CmdBuy:           r.handleBuy,
		CmdDeposit:       r.handleDeposit,
		CmdDepositWallet: r.handleDepositWallet,
		CmdCancel:        r.handleCancel,
		CmdProfile:       r.handleProfile,
		CmdProblem:       r.handleProblem,
		CmdSupport:       r.handleSupport,
		CmdHowTo:         r.handleHowTo,
	}
	r.adminHandlers = map[string]handlerFunc{
		CmdAddNum:     r.handleAddNum,
		CmdAddAccount: r.handleAddAccount,
		CmdSetBalance: r.handleSetBalance,
		CmdCredit:     r.handleCredit,
		CmdDepApprove: r.handleDepApprove,
		CmdDepDeny:    r.handleDepDeny,
		CmdAddDeposit: r.handleAddDeposit,
		CmdSetOTP:     r.handleSetOTP,
		CmdSolve:      r.handleSolve,
		CmdProblems:   r.handleProblems,
		CmdStats:      r.handleStats,
		CmdBroadcast:  r.handleBroadcast,
	}

	return r
}

// Throttle exposes the per-actor limiter so it can be pruned on a schedule
func (r *Router) Throttle() *Throttle {
	return r.throttle
}

// Handle processes one intent. Domain errors become replies; unauthorized
// admin intents yield an empty response.
func (r *Router) Handle(ctx context.Context, intent Intent) Response {
	owner := r.isOwner(intent.ActorID)

	if !owner && !r.throttle.Allow(intent.ActorID) {
		r.metrics.Throttled()
		return respond(say("⏳ Too many requests. Please slow down."))
	}

	r.touchUser(ctx, intent)

	if handler, ok := r.adminHandlers[intent.Command]; ok {
		if !r.canRunAdmin(intent.Command, intent.ActorID) {
			r.log.Debug().Int64("actor_id", intent.ActorID).Str("command", intent.Command).Msg("dropped unauthorized admin intent")
			return Response{}
		}
		r.metrics.Intent(intent.Command)
		return r.run(ctx, intent, handler)
	}

	if intent.Command == CmdCheckJoin {
		r.metrics.Intent(intent.Command)
		return r.handleCheckJoin(ctx, intent)
	}

	if !owner && !r.isMember(ctx, intent.ActorID) {
		return r.forceJoin()
	}

	if handler, ok := r.userHandlers[intent.Command]; ok {
		r.metrics.Intent(intent.Command)
		return r.run(ctx, intent, handler)
	}

	if intent.Command == "" {
		r.metrics.Intent("text")
		return r.run(ctx, intent, r.handleFreeText)
	}

	r.metrics.Intent("unknown")
	return respond(Reply{Text: "Unknown command. Choose an option from the panel below.", Menu: MenuMain})
}

func (r *Router) run(ctx context.Context, intent Intent, handler handlerFunc) Response {
	resp, err := handler(ctx, intent)
	if err == nil {
		return resp
	}

	message, expected := errorMessage(err)
	if !expected {
		logging.LogError(r.log.With().
			Str("command", intent.Command).
			Int64("actor_id", intent.ActorID).
			Logger(), err)
	}
	return respond(say(message))
}

func (r *Router) isOwner(actorID int64) bool {
	return r.owners[actorID]
}

func (r *Router) isReviewer(actorID int64) bool {
	return r.isOwner(actorID) || (r.opts.ReviewOwnerID != 0 && actorID == r.opts.ReviewOwnerID)
}

func (r *Router) canRunAdmin(command string, actorID int64) bool {
	switch command {
	case CmdDepApprove, CmdDepDeny, CmdAddDeposit:
		return r.isReviewer(actorID)
	}
	return r.isOwner(actorID)
}

// isMember asks the gate; a gate error lets the actor through
func (r *Router) isMember(ctx context.Context, actorID int64) bool {
	if r.gate == nil {
		return true
	}
	ok, err := r.gate.IsMember(ctx, actorID)
	if err != nil {
		r.log.Warn().Err(err).Int64("actor_id", actorID).Msg("membership check failed, allowing")
		return true
	}
	return ok
}

// touchUser records the actor. Failures are logged and do not block the intent.
func (r *Router) touchUser(ctx context.Context, intent Intent) {
	if r.svc.Users == nil {
		return
	}
	err := r.svc.Users.UpsertUser(ctx, &entities.User{
		ID:        intent.ActorID,
		Username:  intent.Username,
		FirstName: intent.FirstName,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		logging.LogError(r.log.With().Int64("actor_id", intent.ActorID).Logger(), err)
	}
}

// notify delivers a reply to another actor and reports whether it arrived
func (r *Router) notify(ctx context.Context, recipientID int64, reply Reply) bool {
	if r.notifier == nil || recipientID == 0 {
		return false
	}
	if err := r.notifier.Notify(ctx, recipientID, reply); err != nil {
		r.log.Warn().Err(err).Int64("recipient_id", recipientID).Msg("notification failed")
		return false
	}
	return true
}

func (r *Router) forceJoin() Response {
	var buttons [][]Button
	if r.opts.ForceJoinLink != "" {
		buttons = append(buttons, []Button{{Label: "📢 Join Channel", URL: r.opts.ForceJoinLink}})
	}
	buttons = append(buttons, []Button{{Label: "✅ I Joined", Data: CmdCheckJoin}})
	return respond(Reply{
		Text:    "⚠️ Please join our channel first, then tap 'I Joined' to continue.",
		Buttons: buttons,
	})
}
