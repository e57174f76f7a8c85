package bot

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

const depositInstructions = "Please send the screenshot of your payment with your UTR ID and name."

func (r *Router) handleStart(ctx context.Context, intent Intent) (Response, error) {
	welcome := fmt.Sprintf(
		"<b>WELCOME to %s</b> 👋\n\nChoose an option from the panel below to continue.",
		escape(r.opts.BrandName),
	)
	return respond(Reply{Text: welcome, Menu: MenuMain}), nil
}

func (r *Router) handleCheckJoin(ctx context.Context, intent Intent) Response {
	if r.isOwner(intent.ActorID) || r.isMember(ctx, intent.ActorID) {
		resp := respond(Reply{Text: "✅ Verification complete.", Menu: MenuMain})
		resp.Alert = "Joined verified"
		return resp
	}
	return Response{Alert: "Join the channel first.", ShowAlert: true}
}

func (r *Router) handleStock(ctx context.Context, intent Intent) (Response, error) {
	accountType := entities.AccountType(strings.ToLower(intent.arg(0)))
	if accountType == "" {
		return respond(say("Usage: /stock <type>")), nil
	}

	stock, err := r.svc.Inventory.Stock(ctx, accountType)
	if err != nil {
		return Response{}, err
	}
	if len(stock) == 0 {
		return respond(Reply{
			Text: fmt.Sprintf("No %s stock is available right now.", typeLabel(accountType)),
			Menu: MenuMain,
		}), nil
	}

	lines := []string{"🟢 <b>Select a Country You Need</b>", ""}
	var buttons [][]Button
	for i, country := range stock {
		name := entities.TitleCountry(country.Country)
		lines = append(lines, fmt.Sprintf("🌍 %s: %s - Stock: %d", escape(name), money(country.MinPrice), country.Count))

		button := Button{Label: name, Data: CallbackData(CmdCountry, string(accountType), country.Country)}
		if i%2 == 0 {
			buttons = append(buttons, []Button{button})
		} else {
			buttons[len(buttons)-1] = append(buttons[len(buttons)-1], button)
		}
	}

	return respond(
		Reply{Text: strings.Join(lines, "\n"), Menu: MenuBack},
		Reply{Text: "Choose country:", Buttons: buttons},
	), nil
}

func (r *Router) handleCountry(ctx context.Context, intent Intent) (Response, error) {
	accountType := entities.AccountType(strings.ToLower(intent.arg(0)))
	country := strings.Join(intent.Args[min(1, len(intent.Args)):], " ")
	if accountType == "" || country == "" {
		return respond(say("Usage: /country <type> <country>")), nil
	}

	unit, err := r.svc.Inventory.Select(ctx, accountType, country)
	if err != nil {
		return Response{}, err
	}
	if unit == nil {
		return respond(say("No stock available for this country right now.")), nil
	}

	info := fmt.Sprintf(
		"⚡ <b>%s Account Info</b>\n\n"+
			"🌍 Country: %s\n"+
			"💸 Price: %s\n"+
			"📦 Available: 1+\n\n"+
			"🚫 We are not responsible for any freeze or ban.",
		typeLabel(unit.Type),
		escape(entities.TitleCountry(unit.Country)),
		money(unit.Price),
	)
	return respond(Reply{
		Text:    info,
		Buttons: [][]Button{{{Label: "🛒 Buy Now", Data: CallbackData(CmdBuy, strconv.FormatInt(unit.ID, 10))}}},
	}), nil
}

func (r *Router) handleBuy(ctx context.Context, intent Intent) (Response, error) {
	unitID, err := strconv.ParseInt(intent.arg(0), 10, 64)
	if err != nil {
		return respond(say("Usage: /buy <unit id>")), nil
	}

	result, err := r.svc.Ledger.Purchase(ctx, intent.ActorID, unitID)
	if err != nil {
		if types.IsLedgerError(err, types.ErrNotAvailable) {
			return respond(say("This account is no longer available.")), nil
		}
		return Response{}, err
	}

	message := fmt.Sprintf(
		"✅ Purchase successful!\n"+
			"Type: %s\n"+
			"Number: %s\n"+
			"Password: %s\n"+
			"Paid from: %s (balance %s)\n\n"+
			"Waiting for OTP... it will be delivered instantly when received.",
		typeLabel(result.Unit.Type),
		code(result.Unit.Number),
		code(r.opts.DefaultPassword),
		walletLabel(result.Wallet),
		money(result.BalanceAfter),
	)
	resp := respond(say(message))
	resp.Alert = "Purchased"
	return resp, nil
}

func (r *Router) handleDeposit(ctx context.Context, intent Intent) (Response, error) {
	wallets := r.opts.WalletRules.Wallets()
	if len(wallets) == 1 {
		return r.handleDepositWallet(ctx, Intent{ActorID: intent.ActorID, Args: []string{string(wallets[0])}})
	}

	row := make([]Button, 0, len(wallets))
	for _, name := range wallets {
		row = append(row, Button{Label: walletLabel(name), Data: CallbackData(CmdDepositWallet, string(name))})
	}
	return respond(Reply{Text: "Choose the wallet you want to top up:", Buttons: [][]Button{row}}), nil
}

func (r *Router) handleDepositWallet(ctx context.Context, intent Intent) (Response, error) {
	name := entities.WalletName(strings.ToLower(intent.arg(0)))
	if !r.opts.WalletRules.HasWallet(name) {
		return Response{}, types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown wallet %q", name))
	}

	if _, err := r.svc.Sessions.Begin(ctx, intent.ActorID, name); err != nil {
		return Response{}, types.WrapError(types.ErrStorageUnavailable, "open deposit session", err)
	}

	reply := Reply{
		Text: fmt.Sprintf("Top up %s.\n%s", walletLabel(name), depositInstructions),
		Menu: MenuBack,
	}
	if r.hasQR() {
		reply.PhotoPath = r.opts.DepositQRPath
	} else {
		reply.Text = "QR image is not configured yet.\n" + reply.Text
	}
	return respond(reply), nil
}

func (r *Router) hasQR() bool {
	if r.opts.DepositQRPath == "" {
		return false
	}
	_, err := os.Stat(r.opts.DepositQRPath)
	return err == nil
}

func (r *Router) handleCancel(ctx context.Context, intent Intent) (Response, error) {
	if err := r.svc.Sessions.End(ctx, intent.ActorID); err != nil {
		return Response{}, types.WrapError(types.ErrStorageUnavailable, "end deposit session", err)
	}
	return respond(Reply{Text: "Back to main menu.", Menu: MenuMain}), nil
}

// handleFreeText completes an open deposit capture; otherwise it shows the menu
func (r *Router) handleFreeText(ctx context.Context, intent Intent) (Response, error) {
	session, err := r.svc.Sessions.Get(ctx, intent.ActorID)
	if err != nil {
		return Response{}, types.WrapError(types.ErrStorageUnavailable, "load deposit session", err)
	}
	if session == nil {
		return respond(Reply{Text: "Choose an option from the panel below.", Menu: MenuMain}), nil
	}

	req, err := r.svc.Ledger.SubmitDeposit(ctx, intent.ActorID, session.Wallet, intent.Text, intent.ProofRef)
	if err != nil {
		return Response{}, err
	}
	if err := r.svc.Sessions.End(ctx, intent.ActorID); err != nil {
		r.log.Warn().Err(err).Int64("actor_id", intent.ActorID).Msg("failed to end deposit session")
	}

	who := intent.FirstName
	if intent.Username != "" {
		who = fmt.Sprintf("%s (@%s)", intent.FirstName, intent.Username)
	}
	idText := strconv.FormatInt(req.ID, 10)
	review := Reply{
		Text: fmt.Sprintf(
			"💸 <b>New Deposit Request</b>\n"+
				"Deposit ID: %s\n"+
				"User ID: %s\n"+
				"Name: %s\n"+
				"Wallet: %s\n\n"+
				"Details:\n%s",
			code(idText),
			code(strconv.FormatInt(intent.ActorID, 10)),
			escape(who),
			walletLabel(req.Wallet),
			escape(req.Details),
		),
		Buttons: [][]Button{
			{{Label: "✅ Approve", Data: CallbackData(CmdDepApprove, idText)}},
			{{Label: "❌ Deny", Data: CallbackData(CmdDepDeny, idText)}},
		},
		PhotoRef: req.ProofRef,
	}
	r.notify(ctx, r.opts.ReviewOwnerID, review)

	return respond(Reply{
		Text: fmt.Sprintf("✅ Deposit request submitted.\nYour Deposit ID: %s\nPlease wait for admin review.", code(idText)),
		Menu: MenuMain,
	}), nil
}

func (r *Router) handleProfile(ctx context.Context, intent Intent) (Response, error) {
	profile, err := r.svc.Ledger.Profile(ctx, intent.ActorID)
	if err != nil {
		return Response{}, err
	}

	lines := []string{"👤 <b>Profile</b>"}
	for _, name := range profile.Wallets.Names() {
		lines = append(lines, fmt.Sprintf("💰 %s: %s", walletLabel(name), money(profile.Wallets[name])))
	}
	lines = append(lines, "🧾 Last Purchases:")
	if len(profile.Purchases) == 0 {
		lines = append(lines, "- No purchases yet.")
	}
	for i, p := range profile.Purchases {
		lines = append(lines, fmt.Sprintf("%d. %s | %s | %s | %s | %s | %s",
			i+1,
			strings.ToUpper(string(p.Type)),
			escape(entities.TitleCountry(p.Country)),
			code(p.Number),
			money(p.Price),
			p.Status,
			p.CreatedAt.Format("2006-01-02 15:04"),
		))
	}
	return respond(say(strings.Join(lines, "\n"))), nil
}

func (r *Router) handleProblem(ctx context.Context, intent Intent) (Response, error) {
	if strings.TrimSpace(intent.Rest) == "" {
		return respond(say("Usage: /problem <your issue>")), nil
	}
	report, err := r.svc.Ledger.ReportProblem(ctx, intent.ActorID, intent.Rest)
	if err != nil {
		return Response{}, err
	}
	return respond(say(fmt.Sprintf("Problem #%d submitted. Owner will review it.", report.ID))), nil
}

func (r *Router) handleSupport(ctx context.Context, intent Intent) (Response, error) {
	if r.opts.SupportLink == "" {
		return respond(say("🧑‍💼 Support is not configured yet.")), nil
	}
	return respond(say("🧑‍💼 Support: " + escape(r.opts.SupportLink))), nil
}

func (r *Router) handleHowTo(ctx context.Context, intent Intent) (Response, error) {
	if r.opts.HowToUseLink == "" {
		return respond(say("📖 The guide is not configured yet.")), nil
	}
	return respond(say("📖 How to Use: " + escape(r.opts.HowToUseLink))), nil
}
