package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/review"
)

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func parseAmount(s string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(s)
	return amount, err == nil
}

func (r *Router) handleAddNum(ctx context.Context, intent Intent) (Response, error) {
	if len(intent.Args) < 3 {
		return respond(say("Usage: /addnum <number> <country> <price>")), nil
	}
	return r.addUnit(ctx, intent.ActorID, entities.AccountTypeTG1, intent.Args[0], intent.Args[1], intent.Args[2])
}

func (r *Router) handleAddAccount(ctx context.Context, intent Intent) (Response, error) {
	if len(intent.Args) < 4 {
		names := make([]string, 0)
		for _, t := range r.opts.WalletRules.Types() {
			names = append(names, string(t))
		}
		return respond(say(fmt.Sprintf("Usage: /addaccount <%s> <number> <country> <price>", strings.Join(names, "|")))), nil
	}
	accountType := entities.AccountType(strings.ToLower(intent.Args[0]))
	return r.addUnit(ctx, intent.ActorID, accountType, intent.Args[1], intent.Args[2], intent.Args[3])
}

func (r *Router) addUnit(ctx context.Context, adminID int64, accountType entities.AccountType, number, country, priceText string) (Response, error) {
	price, ok := parseAmount(priceText)
	if !ok {
		return respond(say("Invalid price.")), nil
	}

	id, err := r.svc.Inventory.AddUnit(ctx, adminID, accountType, number, country, price)
	if err != nil {
		return Response{}, err
	}
	return respond(say(fmt.Sprintf(
		"Added %s number %s for %s at %s (unit #%d).",
		typeLabel(accountType),
		code(number),
		escape(entities.TitleCountry(entities.NormalizeCountry(country))),
		money(price),
		id,
	))), nil
}

func (r *Router) balanceArgs(intent Intent, usage string) (int64, entities.WalletName, decimal.Decimal, *Response) {
	if len(intent.Args) != 3 {
		resp := respond(say(usage))
		return 0, "", decimal.Zero, &resp
	}
	userID, ok := parseID(intent.Args[0])
	if !ok {
		resp := respond(say("Invalid user id."))
		return 0, "", decimal.Zero, &resp
	}
	amount, ok := parseAmount(intent.Args[2])
	if !ok {
		resp := respond(say("Invalid amount."))
		return 0, "", decimal.Zero, &resp
	}
	return userID, entities.WalletName(strings.ToLower(intent.Args[1])), amount, nil
}

func (r *Router) handleSetBalance(ctx context.Context, intent Intent) (Response, error) {
	userID, name, amount, usage := r.balanceArgs(intent, "Usage: /setbalance <user_id> <wallet> <amount>")
	if usage != nil {
		return *usage, nil
	}

	previous, err := r.svc.Wallets.AdminSetBalance(ctx, intent.ActorID, userID, name, amount)
	if err != nil {
		return Response{}, err
	}
	return respond(say(fmt.Sprintf("Balance updated. User %d %s: %s (was %s)", userID, walletLabel(name), money(amount), money(previous)))), nil
}

func (r *Router) handleCredit(ctx context.Context, intent Intent) (Response, error) {
	userID, name, amount, usage := r.balanceArgs(intent, "Usage: /credit <user_id> <wallet> <amount>")
	if usage != nil {
		return *usage, nil
	}

	balance, err := r.svc.Wallets.AdminCredit(ctx, intent.ActorID, userID, name, amount)
	if err != nil {
		return Response{}, err
	}
	return respond(say(fmt.Sprintf("Balance credited. User %d %s: %s", userID, walletLabel(name), money(balance)))), nil
}

// decide applies a review decision. A non-nil response means the handler should stop there.
func (r *Router) decide(ctx context.Context, intent Intent, decision review.Decision) (int64, *Response, error) {
	requestID, ok := parseID(intent.arg(0))
	if !ok {
		resp := respond(say(fmt.Sprintf("Usage: /%s <deposit_id>", intent.Command)))
		return 0, &resp, nil
	}

	applied, err := r.svc.Ledger.ApproveOrDeny(ctx, requestID, intent.ActorID, decision)
	if err != nil {
		return 0, nil, err
	}
	if !applied {
		resp := Response{Alert: "Already reviewed or invalid request.", ShowAlert: true}
		if !intent.Callback {
			resp.Replies = []Reply{say("✋ Already reviewed or invalid request.")}
		}
		return requestID, &resp, nil
	}
	return requestID, nil, nil
}

func (r *Router) handleDepApprove(ctx context.Context, intent Intent) (Response, error) {
	requestID, early, err := r.decide(ctx, intent, review.Approve)
	if err != nil || early != nil {
		return deref(early), err
	}

	idText := strconv.FormatInt(requestID, 10)
	resp := respond(say(fmt.Sprintf(
		"Approved Deposit ID %s.\nNow run: %s",
		code(idText),
		code("/add "+idText+" amount"),
	)))
	resp.Alert = "Approved"
	return resp, nil
}

func (r *Router) handleDepDeny(ctx context.Context, intent Intent) (Response, error) {
	requestID, early, err := r.decide(ctx, intent, review.Deny)
	if err != nil || early != nil {
		return deref(early), err
	}

	req, err := r.svc.Ledger.GetDeposit(ctx, requestID)
	if err == nil {
		r.notify(ctx, req.UserID, say(fmt.Sprintf(
			"❌ Your deposit request %d was denied. Contact support if needed.", requestID,
		)))
	} else {
		r.log.Warn().Err(err).Int64("deposit_id", requestID).Msg("could not load denied deposit")
	}

	resp := respond(say(fmt.Sprintf("Deposit ID %s denied.", code(strconv.FormatInt(requestID, 10)))))
	resp.Alert = "Denied"
	return resp, nil
}

func (r *Router) handleAddDeposit(ctx context.Context, intent Intent) (Response, error) {
	if len(intent.Args) != 2 {
		return respond(say("Usage: /add <deposit_id> <amount>")), nil
	}
	requestID, okID := parseID(intent.Args[0])
	amount, okAmount := parseAmount(intent.Args[1])
	if !okID || !okAmount {
		return respond(say("Invalid deposit id or amount.")), nil
	}

	result, err := r.svc.Ledger.DepositCredit(ctx, requestID, intent.ActorID, amount)
	if err != nil {
		switch types.CodeOf(err) {
		case types.ErrNotFound:
			return respond(say("Deposit request not found.")), nil
		case types.ErrInvalidAmount:
			return respond(say("Amount must be greater than 0.")), nil
		}
		return Response{}, err
	}
	if result.AlreadyCredited {
		return respond(say("This deposit request is already credited.")), nil
	}

	r.notify(ctx, result.UserID, say(fmt.Sprintf(
		"✅ Deposit approved and credited: %s\n%s balance: %s",
		money(result.Amount),
		walletLabel(result.Wallet),
		money(result.BalanceAfter),
	)))

	return respond(say(fmt.Sprintf(
		"✅ Added %s to Deposit ID %d (User %d, %s).",
		money(result.Amount),
		requestID,
		result.UserID,
		walletLabel(result.Wallet),
	))), nil
}

func (r *Router) handleSetOTP(ctx context.Context, intent Intent) (Response, error) {
	if len(intent.Args) < 2 {
		return respond(say("Usage: /setotp <number> <otp>")), nil
	}
	number, otp := intent.Args[0], intent.Args[1]

	purchase, err := r.svc.Ledger.OtpDelivery(ctx, number, otp)
	if err != nil {
		if types.IsLedgerError(err, types.ErrNoPurchaseFound) {
			return respond(say("No purchase found for that number.")), nil
		}
		return Response{}, err
	}

	delivered := r.notify(ctx, purchase.UserID, say(fmt.Sprintf(
		"🔐 OTP Received\nNumber: %s\nOTP:- %s\nPASS :- %s",
		code(number),
		code(otp),
		code(r.opts.DefaultPassword),
	)))
	if !delivered {
		return respond(say(fmt.Sprintf("OTP saved on purchase #%d but delivery to the user failed.", purchase.ID))), nil
	}
	return respond(say("OTP pushed to user instantly.")), nil
}

func (r *Router) handleSolve(ctx context.Context, intent Intent) (Response, error) {
	problemID, ok := parseID(intent.arg(0))
	if len(intent.Args) != 1 || !ok {
		return respond(say("Usage: /solve <problem_id>")), nil
	}

	closed, err := r.svc.Ledger.CloseProblem(ctx, problemID)
	if err != nil {
		return Response{}, err
	}
	if !closed {
		return respond(say("Problem not found.")), nil
	}
	return respond(say("Problem closed.")), nil
}

func (r *Router) handleProblems(ctx context.Context, intent Intent) (Response, error) {
	problems, err := r.svc.Ledger.OpenProblems(ctx, ProblemListLimit)
	if err != nil {
		return Response{}, err
	}
	if len(problems) == 0 {
		return respond(say("No open problems.")), nil
	}

	lines := []string{"🛠 <b>Open Problems</b>"}
	for _, p := range problems {
		lines = append(lines, fmt.Sprintf("#%d user %d: %s", p.ID, p.UserID, escape(p.Message)))
	}
	return respond(say(strings.Join(lines, "\n"))), nil
}

func (r *Router) handleStats(ctx context.Context, intent Intent) (Response, error) {
	report, err := r.svc.Statistics.SalesReport(ctx)
	if err != nil {
		return Response{}, err
	}

	lines := []string{
		"📊 <b>Sales Report</b>",
		fmt.Sprintf("Users: %d", report.Users),
		fmt.Sprintf("Sold: %d for %s", report.TotalSold(), money(report.TotalRevenue())),
	}
	for _, sales := range report.Sales {
		lines = append(lines, fmt.Sprintf("- %s: %d sold, %s", typeLabel(sales.Type), sales.Count, money(sales.Revenue)))
	}
	lines = append(lines, "Stock:")
	for _, accountType := range r.opts.WalletRules.Types() {
		lines = append(lines, fmt.Sprintf("- %s: %d available", typeLabel(accountType), report.Stock[accountType]))
	}
	lines = append(lines, fmt.Sprintf("Open problems: %d", report.OpenProblems))
	return respond(say(strings.Join(lines, "\n"))), nil
}

func (r *Router) handleBroadcast(ctx context.Context, intent Intent) (Response, error) {
	message := strings.TrimSpace(intent.Rest)
	if message == "" {
		return respond(say("Usage: /broadcast <message>")), nil
	}

	recipients, err := r.svc.Users.ListUserIDs(ctx)
	if err != nil {
		return Response{}, err
	}

	sent, err := r.broadcaster.Send(ctx, recipients, say("📢 Broadcast\n\n"+escape(message)))
	r.metrics.Broadcast(sent, len(recipients)-sent)
	if err != nil {
		r.log.Warn().Err(err).Int("sent", sent).Msg("broadcast interrupted")
	}
	r.log.Info().Int("sent", sent).Int("recipients", len(recipients)).Msg("broadcast finished")

	return respond(say(fmt.Sprintf("Broadcast done. Sent to %d/%d users.", sent, len(recipients)))), nil
}

func deref(resp *Response) Response {
	if resp == nil {
		return Response{}
	}
	return *resp
}
