// Package bot turns transport-neutral intents into ledger operations and
// renders their outcome as replies and notifications.
package bot

import (
	"strings"
	"unicode"
)

// Command names understood by the router
const (
	CmdStart         = "start"
	CmdCheckJoin     = "check_join"
	CmdStock         = "stock"
	CmdCountry       = "country"
	CmdBuy           = "buy"
	CmdDeposit       = "deposit"
	CmdDepositWallet = "deposit_wallet"
	CmdCancel        = "cancel"
	CmdProfile       = "profile"
	CmdProblem       = "problem"
	CmdSupport       = "support"
	CmdHowTo         = "howto"

	CmdAddNum     = "addnum"
	CmdAddAccount = "addaccount"
	CmdSetBalance = "setbalance"
	CmdCredit     = "credit"
	CmdDepApprove = "dep_approve"
	CmdDepDeny    = "dep_deny"
	CmdAddDeposit = "add"
	CmdSetOTP     = "setotp"
	CmdSolve      = "solve"
	CmdProblems   = "problems"
	CmdStats      = "stats"
	CmdBroadcast  = "broadcast"
)

// Main menu labels. Pressing one sends its label as a plain message.
const (
	BtnTG1      = "📱 Telegram TG1"
	BtnTG2      = "📱 Telegram TG2"
	BtnWhatsApp = "📲 WhatsApp SMS"
	BtnDeposit  = "💸 Deposit"
	BtnProfile  = "👤 My Profile"
	BtnSupport  = "🧑‍💼 Support"
	BtnHowTo    = "📖 How to Use"
	BtnBack     = "🔙 Back"
)

var menuCommands = map[string]struct {
	command string
	args    []string
}{
	BtnTG1:      {CmdStock, []string{"tg1"}},
	BtnTG2:      {CmdStock, []string{"tg2"}},
	BtnWhatsApp: {CmdStock, []string{"whatsapp"}},
	BtnDeposit:  {CmdDeposit, nil},
	BtnProfile:  {CmdProfile, nil},
	BtnSupport:  {CmdSupport, nil},
	BtnHowTo:    {CmdHowTo, nil},
	BtnBack:     {CmdCancel, nil},
}

// Intent is one user action, already stripped of transport details
type Intent struct {
	ActorID   int64
	Username  string
	FirstName string

	// Command is empty for free text, which may complete a deposit capture
	Command string
	Args    []string

	// Rest is the raw text after the command word
	Rest string

	// Text is the whole message or caption
	Text string

	// ProofRef points at an attached image, such as a Telegram file id
	ProofRef string

	// Callback is set when the intent came from an inline button
	Callback bool
}

// Menu selects the persistent keyboard shown with a reply
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuBack
)

// Button is an inline button. Exactly one of Data and URL is set.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Reply is one rendered message. Text uses the HTML subset b, i and code.
type Reply struct {
	Text    string
	Buttons [][]Button
	Menu    Menu

	// PhotoPath is a local file to send with Text as caption
	PhotoPath string

	// PhotoRef is a transport file reference to send with Text as caption
	PhotoRef string
}

// Response is everything the actor sees for one intent
type Response struct {
	Replies []Reply

	// Alert answers a button press with a short toast
	Alert     string
	ShowAlert bool
}

func respond(replies ...Reply) Response {
	return Response{Replies: replies}
}

func say(message string) Reply {
	return Reply{Text: message}
}

// ParseText splits a message into a command, its arguments and the raw
// remainder. Slash commands may carry a @botname suffix. Menu labels map to
// their commands. Anything else yields an empty command.
func ParseText(message string) (command string, args []string, rest string) {
	message = strings.TrimSpace(message)
	if mapped, ok := menuCommands[message]; ok {
		return mapped.command, append([]string(nil), mapped.args...), ""
	}

	if !strings.HasPrefix(message, "/") {
		return "", nil, ""
	}

	head, tail := message[1:], ""
	if end := strings.IndexFunc(head, unicode.IsSpace); end >= 0 {
		head, tail = head[:end], head[end+1:]
	}
	head, _, _ = strings.Cut(head, "@")

	rest = strings.TrimSpace(tail)
	return strings.ToLower(head), strings.Fields(rest), rest
}

// ParseCallback splits button data written by CallbackData
func ParseCallback(data string) (command string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

// CallbackData joins a command and its arguments into button data
func CallbackData(command string, args ...string) string {
	return strings.Join(append([]string{command}, args...), ":")
}

func (i Intent) arg(n int) string {
	if n < len(i.Args) {
		return i.Args[n]
	}
	return ""
}
