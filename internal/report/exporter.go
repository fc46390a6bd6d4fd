package report

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/storeops/inventory-expense/internal/logger"
	"gitlab.com/storeops/inventory-expense/internal/models"
)

const instrumentationName = "gitlab.com/storeops/inventory-expense/internal/report"

// Format is an export file format.
type Format string

// Export formats.
const (
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
	FormatChart Format = "png"
)

// ParseFormat parses an export format, defaulting to xlsx when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case "":
		return FormatExcel, nil
	case FormatExcel, FormatPDF, FormatCSV, FormatChart:
		return f, nil
	case "excel":
		return FormatExcel, nil
	case "chart":
		return FormatChart, nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("Unknown report format %q. Use xlsx, pdf or csv.", s))
	}
}

// Renderer turns a report into file bytes.
type Renderer struct {
	Render   func(*Result) ([]byte, error)
	MimeType string
	Filename func(*Result) string
}

// DefaultRenderers returns the renderers for every supported format.
func DefaultRenderers() map[Format]Renderer {
	byExt := func(ext string) func(*Result) string {
		return func(r *Result) string { return r.Filename(ext) }
	}
	return map[Format]Renderer{
		FormatExcel: {Render: RenderExcel, MimeType: MimeTypeExcel, Filename: byExt("xlsx")},
		FormatPDF:   {Render: RenderPDF, MimeType: MimeTypePDF, Filename: byExt("pdf")},
		FormatCSV:   {Render: RenderCSV, MimeType: MimeTypeCSV, Filename: byExt("csv")},
		FormatChart: {Render: RenderChart, MimeType: MimeTypePNG, Filename: ChartFilename},
	}
}

// AttachmentStore persists generated files.
type AttachmentStore interface {
	Create(ctx context.Context, a *models.Attachment) error
}

// Exporter generates a report, renders it and stores the file.
type Exporter struct {
	aggregator *Aggregator
	store      AttachmentStore
	renderers  map[Format]Renderer
	generated  metric.Int64Counter
}

// NewExporter creates an Exporter. A nil renderers map uses
// DefaultRenderers.
func NewExporter(aggregator *Aggregator, store AttachmentStore, renderers map[Format]Renderer) *Exporter {
	if renderers == nil {
		renderers = DefaultRenderers()
	}
	generated, err := otel.Meter(instrumentationName).Int64Counter("reports.generated",
		metric.WithDescription("Number of report files generated"))
	if err != nil {
		otel.Handle(err)
	}
	return &Exporter{
		aggregator: aggregator,
		store:      store,
		renderers:  renderers,
		generated:  generated,
	}
}

// Export generates the report for req in the given format and stores it as an
// attachment. Invalid requests produce a validation_failed outcome; a missing
// renderer is a *models.ConfigurationError.
func (x *Exporter) Export(ctx context.Context, req Request, format Format, actor int64) (*models.ActionOutcome, error) {
	renderer, ok := x.renderers[format]
	if !ok || renderer.Render == nil {
		return nil, models.NewConfigurationError(fmt.Sprintf(
			"The %s report renderer is not available. Please contact your system administrator.", format))
	}

	// Charts are drawn from the individual lines.
	if format == FormatChart {
		req.Type = TypeDetailed
	}

	res, err := x.aggregator.Generate(ctx, req)
	if err != nil {
		return models.OutcomeFromError(err)
	}

	data, err := renderer.Render(res)
	if models.IsValidationError(err) {
		return models.OutcomeFromError(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", format, err)
	}

	att := &models.Attachment{
		ResModel: models.ResModelReport,
		Name:     renderer.Filename(res),
		MimeType: renderer.MimeType,
		Data:     data,
	}
	if err := x.store.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	if x.generated != nil {
		x.generated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("format", string(format)),
			attribute.String("type", string(res.Request.Type)),
		))
	}

	logger.Log.Info().
		Str("user", logger.HashUserID(actor)).
		Str("format", string(format)).
		Str("period", res.Period()).
		Int("count", res.ExpenseCount).
		Int64("attachment_id", att.ID).
		Msg("Report exported")

	return &models.ActionOutcome{
		Kind:         models.ActionReportGenerated,
		AttachmentID: att.ID,
		Filename:     att.Name,
		MimeType:     att.MimeType,
		Data:         data,
	}, nil
}
