package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"

	"github.com/wolfman30/premiumcar-router/internal/assistant"
	appconfig "github.com/wolfman30/premiumcar-router/internal/config"
	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/internal/notify"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/internal/sheets"
	"github.com/wolfman30/premiumcar-router/internal/sink"
	"github.com/wolfman30/premiumcar-router/internal/whatsapp"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// DispatcherDeps are the process-wide handles the dispatcher wiring needs.
type DispatcherDeps struct {
	// AWS enables the Bedrock fallback, SES e-mail and the S3 archive.
	AWS *aws.Config
	// Registry receives the flow collectors. Nil skips flow metrics.
	Registry prometheus.Registerer
	// Messaging is shared with the webhook handler.
	Messaging *metrics.MessagingMetrics

	SheetsOptions []option.ClientOption
	GeminiOptions []option.ClientOption
}

// Conversation is the wired conversation core.
type Conversation struct {
	Dispatcher *flow.Dispatcher
	Store      *flow.MemoryStore
	closers    []func() error
}

// Close releases clients opened while wiring.
func (c *Conversation) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildDispatcher wires the WhatsApp transport, the record sinks, the answer
// service and the session store into a flow.Dispatcher.
func BuildDispatcher(ctx context.Context, cfg *appconfig.Config, deps DispatcherDeps, logger *logging.Logger) (*Conversation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := whatsapp.NewClient(whatsapp.ClientConfig{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
		BaseURL:       cfg.WhatsAppBaseURL,
	})
	transport := whatsapp.NewTransport(client, logger, deps.Messaging)

	conv := &Conversation{
		Store: flow.NewMemoryStore(flow.WithTTL(cfg.ConversationTTL)),
	}

	opts := []flow.DispatcherOption{
		flow.WithPolicies(flow.Policies{
			Sink:   flow.ParsePolicy(cfg.SinkFailurePolicy, flow.BestEffort),
			Answer: flow.ParsePolicy(cfg.AnswerFailurePolicy, flow.NotifyUser),
		}),
	}
	if deps.Registry != nil {
		opts = append(opts, flow.WithMetrics(metrics.NewFlowMetrics(deps.Registry)))
	}

	recordSink, err := buildSink(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	if recordSink != nil {
		opts = append(opts, flow.WithSink(recordSink))
	}

	answers, closeAnswers, err := buildAnswerService(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	if closeAnswers != nil {
		conv.closers = append(conv.closers, closeAnswers)
	}
	if answers != nil {
		opts = append(opts, flow.WithAnswerService(answers))
	}

	tables := flow.DefaultTables().WithAppointmentSheet(cfg.AppointmentSheet)
	conv.Dispatcher = flow.NewDispatcher(conv.Store, transport, tables, logger, opts...)
	return conv, nil
}

// buildSink returns nil when no destination is configured at all.
func buildSink(ctx context.Context, cfg *appconfig.Config, deps DispatcherDeps, logger *logging.Logger) (flow.Sink, error) {
	var primary flow.Sink
	if strings.TrimSpace(cfg.SheetsSpreadsheetID) != "" {
		appender, err := sheets.NewAppender(ctx, sheets.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		}, logger, deps.SheetsOptions...)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sheets appender: %w", err)
		}
		primary = appender
	} else {
		logger.Warn("SHEETS_SPREADSHEET_ID not set; records will not reach a spreadsheet")
	}

	var secondary []sink.Named
	if notifier := notify.NewLeadNotifier(buildEmailSender(cfg, deps, logger), cfg.LeadEmailRecipients, logger); notifier != nil {
		secondary = append(secondary, sink.Named{Name: "lead_email", Sink: notifier})
	}
	if deps.AWS != nil {
		if archive := sink.NewS3Archive(s3.NewFromConfig(*deps.AWS), cfg.LeadArchiveBucket, cfg.LeadArchivePrefix); archive != nil {
			secondary = append(secondary, sink.Named{Name: "s3_archive", Sink: archive})
		}
	}

	if primary == nil && len(secondary) == 0 {
		return nil, nil
	}
	fan := sink.NewFanout(primary, logger, secondary...)
	logger.Info("record sinks wired", "count", fan.Len())
	return fan, nil
}

func buildEmailSender(cfg *appconfig.Config, deps DispatcherDeps, logger *logging.Logger) notify.EmailSender {
	if len(cfg.LeadEmailRecipients) == 0 {
		return nil
	}
	switch cfg.EmailProvider {
	case "ses":
		if deps.AWS == nil || strings.TrimSpace(cfg.SESFromEmail) == "" {
			logger.Warn("ses e-mail selected but not configured")
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*deps.AWS), notify.SESConfig{
			FromEmail:        cfg.SESFromEmail,
			FromName:         cfg.SendGridFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger)
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
			ReplyTo:   cfg.LeadEmailReplyTo,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set; lead e-mails disabled")
			return nil
		}
		return sender
	}
}

// buildAnswerService prefers Gemini and falls back to Bedrock when both are
// configured. It returns a nil service when neither is.
func buildAnswerService(ctx context.Context, cfg *appconfig.Config, deps DispatcherDeps, logger *logging.Logger) (flow.AnswerService, func() error, error) {
	var (
		primary  assistant.LLMClient
		fallback assistant.LLMClient
		closer   func() error
	)

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, deps.GeminiOptions...)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		primary = gemini
		closer = gemini.Close
	}
	if deps.AWS != nil && strings.TrimSpace(cfg.BedrockModelID) != "" {
		fallback = assistant.NewBedrockClient(bedrockruntime.NewFromConfig(*deps.AWS), cfg.BedrockModelID)
	}

	var llm assistant.LLMClient
	switch {
	case primary != nil && fallback != nil:
		llm = assistant.NewFallbackClient(primary, fallback, logger)
	case primary != nil:
		llm = primary
	case fallback != nil:
		llm = fallback
	default:
		logger.Warn("no answer model configured; assistant questions will fail")
		return nil, closer, nil
	}

	// Each client carries its own model id.
	svc := assistant.NewService(llm, assistant.Config{Timeout: cfg.AnswerTimeout}, logger)
	return svc, closer, nil
}
