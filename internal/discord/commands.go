package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/fadedpez/numberledger/internal/bot"
)

// argsOption carries everything after the command name
const argsOption = "args"

var commandDescriptions = []struct {
	name        string
	description string
	args        string
}{
	{bot.CmdStart, "Open the main menu", ""},
	{bot.CmdStock, "Show stock for an account type", "Account type, e.g. tg1"},
	{bot.CmdCountry, "Show the offer for a country", "Account type and country"},
	{bot.CmdBuy, "Buy a unit by id", "Unit id"},
	{bot.CmdDeposit, "Top up a wallet", ""},
	{bot.CmdCancel, "Cancel the current deposit", ""},
	{bot.CmdProfile, "Show your wallets and purchases", ""},
	{bot.CmdProblem, "Report a problem to the owner", "Describe the issue"},
	{bot.CmdSupport, "Contact support", ""},
	{bot.CmdHowTo, "How to use the store", ""},
	{bot.CmdAddNum, "Add a TG1 number (owner)", "number country price"},
	{bot.CmdAddAccount, "Add a unit of any type (owner)", "type number country price"},
	{bot.CmdSetBalance, "Set a wallet balance (owner)", "user_id wallet amount"},
	{bot.CmdCredit, "Credit a wallet (owner)", "user_id wallet amount"},
	{bot.CmdAddDeposit, "Credit an approved deposit (reviewer)", "deposit_id amount"},
	{bot.CmdSetOTP, "Deliver an OTP to the buyer (owner)", "number otp"},
	{bot.CmdSolve, "Close a problem report (owner)", "problem_id"},
	{bot.CmdProblems, "List open problems (owner)", ""},
	{bot.CmdStats, "Show the sales report (owner)", ""},
	{bot.CmdBroadcast, "Message every user (owner)", "Message text"},
}

// ApplicationCommands returns the slash commands registered at startup
func ApplicationCommands() []*discordgo.ApplicationCommand {
	commands := make([]*discordgo.ApplicationCommand, 0, len(commandDescriptions))
	for _, c := range commandDescriptions {
		command := &discordgo.ApplicationCommand{
			Name:        c.name,
			Description: c.description,
		}
		if c.args != "" {
			command.Options = []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        argsOption,
				Description: c.args,
				Required:    true,
			}}
		}
		commands = append(commands, command)
	}
	return commands
}
