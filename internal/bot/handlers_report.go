package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	appmodels "gitlab.com/storeops/inventory-expense/internal/models"
	"gitlab.com/storeops/inventory-expense/internal/report"
)

func (b *Bot) handleReport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReportCore(ctx, tgBot, update)
}

// handleReportCore is the testable implementation of handleReport.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args, err := parseReportArgs(extractCommandArgs(update.Message.Text, "/report"), b.today())
	if err != nil {
		b.reply(ctx, tg, update.Message.Chat.ID, usageReport)
		return
	}
	b.export(ctx, tg, update, args)
}

func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args, err := parseReportArgs(extractCommandArgs(update.Message.Text, "/chart"), b.today())
	if err != nil {
		b.reply(ctx, tg, update.Message.Chat.ID, "Usage: <code>/chart [from] [to]</code>")
		return
	}
	args.format = report.FormatChart
	b.export(ctx, tg, update, args)
}

// export runs the exporter for the bot's company and sends the file back.
func (b *Bot) export(ctx context.Context, tg TelegramAPI, update *models.Update, args reportArgs) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "bot.export",
		trace.WithAttributes(
			attribute.String("report.format", string(args.format)),
			attribute.String("report.type", string(args.req.Type)),
		))
	defer span.End()

	req := args.req
	req.CompanyID = b.deps.Company.ID
	req.CompanyName = b.deps.Company.Name
	req.CompanyCurrency = b.deps.Company.Currency

	outcome, err := b.deps.Reports.Export(ctx, req, args.format, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		b.replyError(ctx, tg, chatID, err, "generate report")
		return
	}
	if outcome.Kind == appmodels.ActionValidationFailed {
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(outcome.Message))
		return
	}

	caption := fmt.Sprintf("📄 <b>Expense report</b>\n%s to %s",
		req.DateFrom.Format(appmodels.DateLayout), req.DateTo.Format(appmodels.DateLayout))
	if args.format == report.FormatChart {
		caption = fmt.Sprintf("📊 <b>Spending by expense</b>\n%s to %s",
			req.DateFrom.Format(appmodels.DateLayout), req.DateTo.Format(appmodels.DateLayout))
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: outcome.Filename, Data: bytes.NewReader(outcome.Data)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		span.RecordError(err)
		logger.Log.Error().Err(err).Msg("Failed to send report document")
		b.reply(ctx, tg, chatID, "❌ Failed to send report. Please try again.")
		return
	}

	logger.Log.Info().
		Str("user", logger.HashUserID(userID)).
		Str("filename", outcome.Filename).
		Int64("attachment_id", outcome.AttachmentID).
		Msg("Report sent")
}
