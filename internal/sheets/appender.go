// Package sheets appends lead rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// Default column span for appended rows. Records never exceed six fields.
const defaultColumns = "A:F"

// Config holds the spreadsheet target and credentials.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	Columns         string
	Timeout         time.Duration
}

// Appender writes rows with spreadsheets.values.append.
type Appender struct {
	svc           *gsheets.Service
	spreadsheetID string
	columns       string
	timeout       time.Duration
	logger        *logging.Logger
}

// NewAppender builds a Sheets client. Extra client options (endpoint,
// HTTP client) are appended after the credential options.
func NewAppender(ctx context.Context, cfg Config, logger *logging.Logger, opts ...option.ClientOption) (*Appender, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(gsheets.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	columns := cfg.Columns
	if columns == "" {
		columns = defaultColumns
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Appender{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		columns:       columns,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// Append adds one row to the named tab.
func (a *Appender) Append(ctx context.Context, destination string, fields []string) error {
	if destination == "" {
		return errors.New("sheets: destination tab is required")
	}

	ctx, span := otel.Tracer("premiumcar-router/sheets").Start(ctx, "sheets.append")
	span.SetAttributes(attribute.String("sheet.tab", destination))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row := make([]interface{}, len(fields))
	for i, f := range fields {
		row[i] = f
	}

	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, destination+"!"+a.columns, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("sheets: append to %s: %w", destination, err)
	}

	a.logger.Debug("sheets: row appended", "tab", destination, "fields", len(fields))
	return nil
}
