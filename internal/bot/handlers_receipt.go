package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	appmodels "gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/quickadd"
)

const (
	// maxReceiptBytes matches the Telegram bot download limit.
	maxReceiptBytes  = 20 << 20
	manualCaption    = "manual"
	photoReceiptName = "receipt.jpg"
	photoReceiptMime = "image/jpeg"
)

// handleReceiptCore creates an expense from a receipt photo or document.
// The caption "manual" skips AI extraction.
func (b *Bot) handleReceiptCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID
	manual := strings.EqualFold(strings.TrimSpace(msg.Caption), manualCaption)

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "bot.quick_add",
		trace.WithAttributes(attribute.Bool("quick_add.manual", manual)))
	defer span.End()

	fileID, upload, ok := receiptUpload(msg)
	if !ok {
		return
	}

	if !manual {
		b.reply(ctx, tg, chatID, "📷 Reading receipt...")
	}

	data, err := b.downloadFile(ctx, tg, fileID)
	if err != nil {
		span.RecordError(err)
		logger.Log.Error().Err(err).Str("user", logger.HashUserID(userID)).Msg("Failed to download receipt")
		b.reply(ctx, tg, chatID, "❌ Failed to download the receipt. Please try again.")
		return
	}
	upload.Data = data

	owner := quickadd.Owner{
		UserID:    userID,
		CompanyID: b.deps.Company.ID,
		Currency:  b.deps.Company.Currency,
	}

	var outcome *appmodels.ActionOutcome
	if manual {
		outcome, err = b.deps.QuickAdd.QuickAdd(ctx, upload, owner)
	} else {
		outcome, err = b.deps.QuickAdd.QuickAddAI(ctx, upload, owner)
	}
	if appmodels.IsConfigurationError(err) {
		b.reply(ctx, tg, chatID, "⚙️ "+escapeHTML(err.Error())+
			"\n\nSend the receipt again with the caption <code>manual</code> to attach it without AI.")
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quick add failed")
		b.replyError(ctx, tg, chatID, err, "save expense")
		return
	}
	if outcome.Kind == appmodels.ActionValidationFailed {
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(outcome.Message))
		return
	}

	e, err := b.deps.Expenses.Get(ctx, outcome.ExpenseID)
	if err != nil {
		b.replyError(ctx, tg, chatID, err, "load expense")
		return
	}

	text := "✅ Expense created from receipt\n\n" + formatExpense(e)
	if outcome.Message != "" {
		text += "\n\n⚠️ " + escapeHTML(outcome.Message)
	}
	text += fmt.Sprintf("\n\nFix anything with <code>/edit %d &lt;field&gt; &lt;value&gt;</code>", e.ID)
	b.reply(ctx, tg, chatID, text)
}

// receiptUpload picks the file to download: the largest photo size, or the
// document.
func receiptUpload(msg *models.Message) (string, quickadd.Upload, bool) {
	if msg.Document != nil {
		return msg.Document.FileID, quickadd.Upload{
			Filename: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
		}, true
	}
	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		return largest.FileID, quickadd.Upload{
			Filename: photoReceiptName,
			MimeType: photoReceiptMime,
		}, true
	}
	return "", quickadd.Upload{}, false
}

// downloadFile fetches a Telegram file through the instrumented HTTP client.
func (b *Bot) downloadFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxReceiptBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxReceiptBytes)
	}
	return data, nil
}
