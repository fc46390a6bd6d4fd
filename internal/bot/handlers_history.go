package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	appmodels "gitlab.com/storeops/inventory-expense/internal/models"
)

const usageHistory = "Usage: <code>/history &lt;id&gt;</code>"

func (b *Bot) handleHistory(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHistoryCore(ctx, tgBot, update)
}

// handleHistoryCore is the testable implementation of handleHistory.
func (b *Bot) handleHistoryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text, "/history"))
	if err != nil {
		b.reply(ctx, tg, chatID, usageHistory)
		return
	}

	e, ok := b.loadExpense(ctx, tg, chatID, id)
	if !ok {
		return
	}

	changes, err := b.deps.History.ListByExpense(ctx, id)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "load history")
		return
	}
	if len(changes) == 0 {
		b.reply(ctx, tg, chatID, fmt.Sprintf("🕓 Expense #%d has not been edited.", id))
		return
	}

	names := make(map[int64]string)
	var sb strings.Builder
	fmt.Fprintf(&sb, "🕓 <b>History of #%d %s</b>\n\n", e.ID, escapeHTML(e.Name))
	for _, c := range changes {
		fmt.Fprintf(&sb, "• %s %s changed from %s to %s (%s)\n",
			c.CreatedAt.Format(appmodels.DateLayout),
			escapeHTML(c.Field),
			escapeHTML(c.OldValue),
			escapeHTML(c.NewValue),
			escapeHTML(b.userName(ctx, names, c.ChangedBy)))
	}
	b.reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))
}

// userName resolves a user's display name once per request.
func (b *Bot) userName(ctx context.Context, cache map[int64]string, id int64) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := fmt.Sprintf("user %s", logger.HashUserID(id))
	if u, err := b.deps.Users.GetUserByID(ctx, id); err == nil && u.DisplayName() != "" {
		name = u.DisplayName()
	}
	cache[id] = name
	return name
}

func (b *Bot) handleReceipt(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReceiptDocumentCore(ctx, tgBot, update)
}

// handleReceiptDocumentCore sends the receipt stored with an expense.
func (b *Bot) handleReceiptDocumentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text, "/receipt"))
	if err != nil {
		b.reply(ctx, tg, chatID, "Usage: <code>/receipt &lt;id&gt;</code>")
		return
	}

	e, ok := b.loadExpense(ctx, tg, chatID, id)
	if !ok {
		return
	}
	if e.ReceiptAttachmentID == nil {
		b.reply(ctx, tg, chatID, fmt.Sprintf("📎 Expense #%d has no receipt.", id))
		return
	}

	att, err := b.deps.Attachments.GetByID(ctx, *e.ReceiptAttachmentID)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "load receipt")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: att.Name, Data: bytes.NewReader(att.Data)},
		Caption:   "📎 " + escapeHTML(e.Name),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64("expense_id", id).Msg("Failed to send receipt")
		b.reply(ctx, tg, chatID, "❌ Failed to send the receipt. Please try again.")
	}
}
