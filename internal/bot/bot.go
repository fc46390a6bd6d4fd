// Package bot is the Telegram front end: it parses commands and receipt
// uploads, calls the expense, quick add and report services and replies with
// messages or files.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/storeops/inventory-expense/internal/config"
	"gitlab.com/storeops/inventory-expense/internal/expense"
	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/quickadd"
	"gitlab.com/storeops/inventory-expense/internal/report"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

const (
	instrumentationName = "gitlab.com/storeops/inventory-expense/internal/bot"
	downloadTimeout     = 30 * time.Second
)

// UserStore registers Telegram users and resolves them for display.
type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// ChangeHistory lists the tracked field changes of an expense.
type ChangeHistory interface {
	ListByExpense(ctx context.Context, expenseID int64) ([]models.ExpenseChange, error)
}

// AttachmentReader loads stored receipts.
type AttachmentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
}

// ExpenseService creates, updates and loads expenses.
type ExpenseService interface {
	Create(ctx context.Context, in expense.Input) (*models.Expense, error)
	Update(ctx context.Context, id int64, p expense.Patch, actor int64) (*models.Expense, error)
	Get(ctx context.Context, id int64) (*models.Expense, error)
}

// ExpenseQueries answers the read-only listing commands.
type ExpenseQueries interface {
	ListNeedsReview(ctx context.Context, companyID int64, limit int) ([]models.Expense, error)
	SumByDateRange(ctx context.Context, companyID int64, from, to time.Time) (repository.Totals, error)
}

// ReportExporter renders and stores reports.
type ReportExporter interface {
	Export(ctx context.Context, req report.Request, format report.Format, actor int64) (*models.ActionOutcome, error)
}

// QuickAdder creates expenses from receipt uploads.
type QuickAdder interface {
	QuickAdd(ctx context.Context, up quickadd.Upload, owner quickadd.Owner) (*models.ActionOutcome, error)
	QuickAddAI(ctx context.Context, up quickadd.Upload, owner quickadd.Owner) (*models.ActionOutcome, error)
	HasExtractor() bool
}

// SettingsStore reads and writes administrator settings.
type SettingsStore interface {
	GetOr(ctx context.Context, key, fallback string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Deps are the services the handlers call.
type Deps struct {
	Company      models.Company
	Users        UserStore
	Expenses     ExpenseService
	Queries      ExpenseQueries
	History      ChangeHistory
	Attachments  AttachmentReader
	Reports      ReportExporter
	QuickAdd     QuickAdder
	Settings     SettingsStore
	DefaultModel string
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot        *bot.Bot
	cfg        *config.Config
	deps       Deps
	httpClient *http.Client
	now        func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := newBot(cfg, deps)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, deps Deps) *Bot {
	return &Bot{
		cfg:  cfg,
		deps: deps,
		httpClient: &http.Client{
			Timeout:   downloadTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

func (b *Bot) registerHandlers() {
	commands := []struct {
		command string
		handler bot.HandlerFunc
	}{
		{"/start", b.handleStart},
		{"/help", b.handleHelp},
		{"/add", b.handleAdd},
		{"/edit", b.handleEdit},
		{"/show", b.handleShow},
		{"/history", b.handleHistory},
		{"/receipt", b.handleReceipt},
		{"/review", b.handleReview},
		{"/total", b.handleTotal},
		{"/report", b.handleReport},
		{"/chart", b.handleChart},
		{"/setmodel", b.handleSetModel},
		{"/model", b.handleModel},
	}
	for _, c := range commands {
		b.bot.RegisterHandler(bot.HandlerTypeMessageText, c.command, bot.MatchTypePrefix, c.handler)
	}
}

// whitelistMiddleware drops updates from users that are not whitelisted.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.authorize(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// authorize registers whitelisted senders and rejects everyone else.
func (b *Bot) authorize(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if !b.cfg.IsUserWhitelisted(userID, username) {
		logger.Log.Warn().
			Str("user", logger.HashUserID(userID)).
			Msg("Blocked non-whitelisted user")
		if update.Message != nil {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "⛔ Sorry, you are not authorized to use this bot.",
			})
		}
		return false
	}

	if err := b.ensureUserRegistered(ctx, update); err != nil {
		logger.Log.Error().
			Str("user", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to register user")
	}
	return true
}

// logUserAction logs the kind of input without its content.
func logUserAction(userID int64, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	event := logger.Log.Info().
		Str("user", logger.HashUserID(userID)).
		Str("chat", logger.HashChatID(msg.Chat.ID))

	switch {
	case msg.Document != nil:
		event = event.Str("type", "document").Str("filename", logger.SanitizeFilename(msg.Document.FileName))
	case len(msg.Photo) > 0:
		event = event.Str("type", "photo")
	default:
		event = event.Str("type", "text").Str("text", logger.SanitizeText(msg.Text))
	}

	event.Msg("User input")
}

func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	return ""
}

func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	return 0
}

// ensureUserRegistered creates or updates the user record so reports can show
// who logged each expense.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *tgmodels.Update) error {
	if update.Message == nil || update.Message.From == nil || b.deps.Users == nil {
		return nil
	}

	from := update.Message.From
	user := &models.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
	if err := b.deps.Users.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// defaultHandler routes receipt uploads to quick add and answers anything
// else with a hint.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	if len(update.Message.Photo) > 0 || update.Message.Document != nil {
		b.handleReceiptCore(ctx, tg, update)
		return
	}

	b.reply(ctx, tg, update.Message.Chat.ID,
		"I didn't understand that. Send a receipt photo or use /help to see available commands.")
}

// reply sends an HTML message and logs delivery failures.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// replyError turns a service error into a user message. Validation messages
// are shown verbatim; configuration problems point at the administrator.
func (b *Bot) replyError(ctx context.Context, tg TelegramAPI, chatID int64, err error, action string) {
	switch {
	case models.IsValidationError(err):
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error()))
	case models.IsConfigurationError(err):
		b.reply(ctx, tg, chatID, "⚙️ "+escapeHTML(err.Error()))
	default:
		logger.Log.Error().Err(err).Str("action", action).Msg("Request failed")
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Failed to %s. Please try again.", action))
	}
}

func (b *Bot) today() time.Time {
	return models.Date(b.now())
}
