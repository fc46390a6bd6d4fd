package bot

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = `📚 <b>Available Commands</b>

<b>Logging purchases:</b>
• Send a receipt photo or file to create an expense read by AI
• Add the caption <code>manual</code> to attach the receipt without AI
• <code>/add &lt;paid&gt; &lt;subtotal&gt; &lt;name&gt;</code> - Add an expense by hand

<b>Managing expenses:</b>
• <code>/show &lt;id&gt;</code> - Show an expense
• <code>/edit &lt;id&gt; &lt;name|date|paid|subtotal|notes&gt; &lt;value&gt;</code> - Edit an expense
• <code>/history &lt;id&gt;</code> - Show what was changed and by whom
• <code>/receipt &lt;id&gt;</code> - Send back the stored receipt
• <code>/review</code> - List expenses read by AI that need a check

<b>Reports:</b>
• <code>/total [from] [to]</code> - Show totals for a period
• <code>/report [from] [to] [summary|detailed] [xlsx|pdf|csv] [currency]</code> - Export a report
• <code>/chart [from] [to]</code> - Chart spending per expense name

<b>Admin:</b>
• <code>/model</code> - Show the receipt extraction model
• <code>/setmodel &lt;name&gt;</code> - Change the receipt extraction model

Dates are <code>YYYY-MM-DD</code>; without dates reports cover this month to date.`

func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	receiptHint := "Send a photo of a receipt and I will read the vendor, date and amounts"
	if !b.deps.QuickAdd.HasExtractor() {
		receiptHint = "Send a photo of a receipt with the caption <code>manual</code> to file it"
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I log inventory purchases for <b>%s</b>.

<b>Quick Start:</b>
• %s
• Or add one by hand: <code>/add 109.00 100.00 Costco</code>

Use /help to see all available commands.`,
		formatGreeting(firstName), escapeHTML(b.deps.Company.Name), receiptHint)

	b.reply(ctx, tg, update.Message.Chat.ID, text)
}

func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, helpText)
}
