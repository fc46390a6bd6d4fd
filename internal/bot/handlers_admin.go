package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/repository"
)

const maxModelNameLength = 100

func (b *Bot) handleModel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleModelCore(ctx, tgBot, update)
}

// handleModelCore is the testable implementation of handleModel.
func (b *Bot) handleModelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	model, err := b.deps.Settings.GetOr(ctx, repository.SettingOpenAIModel, b.deps.DefaultModel)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "read settings")
		return
	}
	b.reply(ctx, tg, chatID, fmt.Sprintf("🤖 Receipt extraction model: <code>%s</code>", escapeHTML(model)))
}

func (b *Bot) handleSetModel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSetModelCore(ctx, tgBot, update)
}

// handleSetModelCore is the testable implementation of handleSetModel.
func (b *Bot) handleSetModelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if !b.cfg.IsAdmin(userID) {
		b.reply(ctx, tg, chatID, "⛔ Only administrators can change the model.")
		return
	}

	model := extractCommandArgs(update.Message.Text, "/setmodel")
	if model == "" || strings.ContainsAny(model, " \t\n") || len(model) > maxModelNameLength {
		b.reply(ctx, tg, chatID, "Usage: <code>/setmodel &lt;model&gt;</code>\nExample: <code>/setmodel gpt-4o</code>")
		return
	}

	if err := b.deps.Settings.Set(ctx, repository.SettingOpenAIModel, model); err != nil {
		b.replyError(ctx, tg, chatID, err, "save settings")
		return
	}

	logger.Log.Info().
		Str("user", logger.HashUserID(userID)).
		Str("model", model).
		Msg("Extraction model changed")
	b.reply(ctx, tg, chatID, fmt.Sprintf("✅ Receipt extraction model set to <code>%s</code>", escapeHTML(model)))
}
