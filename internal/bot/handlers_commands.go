package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/logger"
	appmodels "gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

const reviewListLimit = 20

func (b *Bot) handleAdd(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddCore(ctx, tgBot, update)
}

// handleAddCore is the testable implementation of handleAdd.
func (b *Bot) handleAddCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	paid, subtotal, name, err := parseAddArgs(extractCommandArgs(update.Message.Text, "/add"))
	if err != nil {
		b.reply(ctx, tg, chatID, usageAdd)
		return
	}

	e, err := b.deps.Expenses.Create(ctx, expense.Input{
		Name:            name,
		Date:            b.today(),
		TotalWithTax:    &paid,
		TotalWithoutTax: &subtotal,
		CompanyID:       b.deps.Company.ID,
		Currency:        b.deps.Company.Currency,
		CreatedBy:       userID,
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "save expense")
		return
	}

	b.reply(ctx, tg, chatID, "✅ Expense added\n\n"+formatExpense(e))
}

func (b *Bot) handleEdit(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditCore(ctx, tgBot, update)
}

// handleEditCore is the testable implementation of handleEdit.
func (b *Bot) handleEditCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	id, patch, err := parseEditArgs(extractCommandArgs(update.Message.Text, "/edit"))
	if err != nil {
		b.reply(ctx, tg, chatID, usageEdit)
		return
	}

	before, ok := b.loadExpense(ctx, tg, chatID, id)
	if !ok {
		return
	}

	after, err := b.deps.Expenses.Update(ctx, id, patch, userID)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "update expense")
		return
	}

	b.reply(ctx, tg, chatID, fmt.Sprintf("✏️ Expense #%d updated\n%s\n\n%s",
		id, formatChanges(expense.Diff(before, after)), formatExpense(after)))
}

func (b *Bot) handleShow(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleShowCore(ctx, tgBot, update)
}

// handleShowCore is the testable implementation of handleShow.
func (b *Bot) handleShowCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text, "/show"))
	if err != nil {
		b.reply(ctx, tg, chatID, usageShow)
		return
	}

	e, ok := b.loadExpense(ctx, tg, chatID, id)
	if !ok {
		return
	}
	b.reply(ctx, tg, chatID, formatExpense(e))
}

// loadExpense fetches an expense of the bot's company, replying when it does
// not exist.
func (b *Bot) loadExpense(ctx context.Context, tg TelegramAPI, chatID, id int64) (*appmodels.Expense, bool) {
	e, err := b.deps.Expenses.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && e.CompanyID != b.deps.Company.ID) {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Expense #%d not found.", id))
		return nil, false
	}
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "load expense")
		return nil, false
	}
	return e, true
}

func (b *Bot) handleReview(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReviewCore(ctx, tgBot, update)
}

// handleReviewCore is the testable implementation of handleReview.
func (b *Bot) handleReviewCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	expenses, err := b.deps.Queries.ListNeedsReview(ctx, b.deps.Company.ID, reviewListLimit)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "list expenses")
		return
	}
	if len(expenses) == 0 {
		b.reply(ctx, tg, chatID, "👍 No expenses need review.")
		return
	}

	var sb strings.Builder
	sb.WriteString("⚠️ <b>Expenses read by AI</b>\n\n")
	for i := range expenses {
		sb.WriteString(formatExpenseLine(&expenses[i]))
		sb.WriteString("\n")
	}
	sb.WriteString("\nCheck them with <code>/show &lt;id&gt;</code> and fix with <code>/edit</code>.")
	b.reply(ctx, tg, chatID, sb.String())
}

func (b *Bot) handleTotal(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTotalCore(ctx, tgBot, update)
}

// handleTotalCore is the testable implementation of handleTotal.
func (b *Bot) handleTotalCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parseReportArgs(extractCommandArgs(update.Message.Text, "/total"), b.today())
	if err != nil {
		b.reply(ctx, tg, chatID, usageReport)
		return
	}
	req := args.req
	if err := req.Validate(); err != nil {
		b.replyError(ctx, tg, chatID, err, "calculate totals")
		return
	}

	totals, err := b.deps.Queries.SumByDateRange(ctx, b.deps.Company.ID, req.DateFrom, req.DateTo)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "calculate totals")
		return
	}

	sym := currencySymbol(b.deps.Company.Currency)
	b.reply(ctx, tg, chatID, fmt.Sprintf(`📊 <b>%s to %s</b>

Expenses: %d
Total paid: %s%s
Total tax: %s%s
Total subtotal: %s%s`,
		req.DateFrom.Format("2006-01-02"), req.DateTo.Format("2006-01-02"),
		totals.Count,
		sym, totals.TotalWithTax.StringFixed(2),
		sym, totals.TotalTax.StringFixed(2),
		sym, totals.TotalWithoutTax.StringFixed(2)))

	logger.Log.Debug().Int("count", totals.Count).Msg("Totals sent")
}
