package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

var (
	// ErrMalformedEvent is returned for inbound events without a user id.
	ErrMalformedEvent = errors.New("flow: malformed inbound event")
	// ErrUnknownMedia means the classifier routed a keyword the media table
	// does not know. The two are out of sync; this is a programming error.
	ErrUnknownMedia = errors.New("flow: unknown media keyword")
	// ErrNoAnswerService is returned when an assistant question arrives
	// but no answer service is configured.
	ErrNoAnswerService = errors.New("flow: answer service not configured")
)

// Transport delivers intents to the messaging provider.
type Transport interface {
	Send(ctx context.Context, userID string, intent Intent) error
	MarkRead(ctx context.Context, messageID string) error
}

// Sink appends a completed lead to a named destination.
type Sink interface {
	Append(ctx context.Context, destination string, fields []string) error
}

// AnswerService answers a free-text question.
type AnswerService interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Dispatcher routes inbound events through the flows and sends the
// resulting intents. It owns the conversation store.
type Dispatcher struct {
	store     Store
	transport Transport
	tables    *Tables
	sink      Sink
	answers   AnswerService
	policies  Policies
	metrics   *metrics.FlowMetrics
	tracer    trace.Tracer
	logger    *logging.Logger
	now       func() time.Time
	locks     *userLocks
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSink wires the persistence sink used when a flow completes.
func WithSink(sink Sink) DispatcherOption {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

// WithAnswerService wires the assistant backend.
func WithAnswerService(answers AnswerService) DispatcherOption {
	return func(d *Dispatcher) {
		d.answers = answers
	}
}

// WithPolicies overrides the collaborator failure policies.
func WithPolicies(p Policies) DispatcherOption {
	return func(d *Dispatcher) {
		if p.Sink != "" {
			d.policies.Sink = p.Sink
		}
		if p.Answer != "" {
			d.policies.Answer = p.Answer
		}
	}
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.FlowMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher builds a dispatcher around a store and a transport.
func NewDispatcher(store Store, transport Transport, tables *Tables, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if store == nil {
		panic("flow: store cannot be nil")
	}
	if transport == nil {
		panic("flow: transport cannot be nil")
	}
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		store:     store,
		transport: transport,
		tables:    tables,
		policies:  DefaultPolicies(),
		tracer:    otel.Tracer("premiumcar.internal.flow"),
		logger:    logger,
		now:       time.Now,
		locks:     newUserLocks(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Advance handles one inbound event end to end: it routes the event,
// updates the user's session, sends the resulting intents in order and
// finally marks the inbound message as read.
func (d *Dispatcher) Advance(ctx context.Context, in Inbound) error {
	if strings.TrimSpace(in.UserID) == "" || in.Event == nil {
		d.logger.Warn("dropping malformed inbound event", "message_id", in.MessageID)
		return ErrMalformedEvent
	}

	unlock := d.locks.lock(in.UserID)
	defer unlock()

	ctx, span := d.tracer.Start(ctx, "flow.advance", trace.WithAttributes(
		attribute.String("flow.event_type", EventType(in.Event)),
	))
	defer span.End()

	intents, decision, err := d.step(ctx, in)
	if decision.Route == RouteIgnore {
		d.logger.Debug("ignoring unsupported event", "user_id", in.UserID, "event_type", EventType(in.Event))
		return nil
	}
	span.SetAttributes(attribute.String("flow.route", decision.Route.String()))
	if err != nil {
		span.RecordError(err)
		d.logger.Error("flow step failed", "error", err, "user_id", in.UserID, "route", decision.Route.String())
	}

	d.deliver(ctx, in.UserID, intents)
	d.markRead(ctx, in.MessageID)
	return err
}

// Step applies an inbound event to the user's session and returns the
// intents to send without sending them or marking the message read.
func (d *Dispatcher) Step(ctx context.Context, in Inbound) ([]Intent, error) {
	if strings.TrimSpace(in.UserID) == "" || in.Event == nil {
		return nil, ErrMalformedEvent
	}
	unlock := d.locks.lock(in.UserID)
	defer unlock()

	intents, _, err := d.step(ctx, in)
	return intents, err
}

func (d *Dispatcher) step(ctx context.Context, in Inbound) ([]Intent, Decision, error) {
	session, _ := d.store.Get(in.UserID)
	decision := Classify(d.tables, in.Event, session)
	if decision.Route == RouteIgnore {
		return nil, decision, nil
	}
	d.metrics.ObserveRoute(decision.Route.String())

	c := d.tables.Copy()
	switch decision.Route {
	case RouteWelcome:
		greeting := fmt.Sprintf(c.Welcome, firstName(in.DisplayName, in.UserID))
		return []Intent{text(greeting), d.tables.MainMenu()}, decision, nil
	case RouteMedia:
		intent, err := d.media(decision.Selector)
		if err != nil {
			return nil, decision, err
		}
		return []Intent{intent}, decision, nil
	case RouteFallback:
		return []Intent{text(c.Fallback), d.tables.MainMenu()}, decision, nil
	case RouteMenuSelection:
		return d.selectOption(in.UserID, decision.Selector), decision, nil
	case RouteAppointmentStep:
		tr := advanceAppointment(d.tables, in.UserID, session.Appointment, bodyOf(in.Event), d.now())
		return d.apply(ctx, in.UserID, KindAppointment, tr), decision, nil
	case RouteSaleStep:
		tr := advanceSale(d.tables, in.UserID, session.Sale, bodyOf(in.Event), d.now())
		return d.apply(ctx, in.UserID, KindSale, tr), decision, nil
	case RouteAssistantStep:
		intents, err := d.assist(ctx, in.UserID, session.Assistant, bodyOf(in.Event))
		return intents, decision, err
	default:
		return nil, decision, fmt.Errorf("flow: unhandled route %s", decision.Route)
	}
}

func (d *Dispatcher) media(keyword string) (Intent, error) {
	kind := MediaKind(keyword)
	asset, ok := d.tables.Media(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMedia, keyword)
	}
	return Media{Kind: kind, URL: asset.URL, Caption: asset.Caption, Filename: asset.Filename}, nil
}

func (d *Dispatcher) selectOption(userID, option string) []Intent {
	c := d.tables.Copy()
	switch option {
	case OptionSell:
		d.start(userID, NewSaleSession())
		return []Intent{text(c.AskSaleIntent)}
	case OptionConsult:
		d.start(userID, NewAssistantSession())
		return []Intent{text(c.AskQuestion)}
	case OptionVisit:
		d.start(userID, NewAppointmentSession())
		return []Intent{text(c.AskName)}
	case OptionContact:
		return []Intent{ContactCard{Contact: d.tables.Contact()}, text(c.ContactInfo)}
	case OptionNoThanks:
		return []Intent{text(c.NoThanks)}
	default:
		d.logger.Info("unknown menu option", "user_id", userID, "option", option)
		return []Intent{text(c.InvalidOption)}
	}
}

// start replaces whatever session the user had with a fresh flow.
func (d *Dispatcher) start(userID string, session Session) {
	if prev, ok := d.store.Get(userID); ok && prev.Kind != session.Kind {
		d.logger.Info("replacing active flow", "user_id", userID, "from", string(prev.Kind), "to", string(session.Kind))
	}
	d.store.Put(userID, session)
	d.metrics.ObserveTransition(string(session.Kind), string(OutcomeStarted))
}

// apply commits a transition: persist the record, then update the store.
func (d *Dispatcher) apply(ctx context.Context, userID string, kind Kind, tr transition) []Intent {
	intents := tr.intents
	if tr.record != nil {
		if err := d.persist(ctx, *tr.record); err != nil && d.policies.Sink == NotifyUser {
			intents = []Intent{text(d.tables.Copy().SinkFailed)}
		}
	}

	switch {
	case tr.clear:
		d.store.Delete(userID)
	case tr.next != nil:
		d.store.Put(userID, *tr.next)
	}

	d.metrics.ObserveTransition(string(kind), string(tr.outcome))
	d.logger.Debug("flow transition", "user_id", userID, "flow", string(kind), "outcome", string(tr.outcome))
	return intents
}

func (d *Dispatcher) persist(ctx context.Context, record Record) error {
	if d.sink == nil {
		d.logger.Warn("no persistence sink configured; dropping record", "destination", record.Destination)
		return nil
	}
	ctx, span := d.tracer.Start(ctx, "flow.persist", trace.WithAttributes(
		attribute.String("flow.destination", record.Destination),
	))
	defer span.End()

	if err := d.sink.Append(ctx, record.Destination, record.Fields); err != nil {
		span.RecordError(err)
		d.metrics.ObserveFailure("sink", string(d.policies.Sink))
		d.logger.Error("persistence sink append failed", "error", err, "destination", record.Destination)
		return err
	}
	return nil
}

// assist answers a single question. The assistant session ends as soon as
// the question arrives, whatever the answer service does.
func (d *Dispatcher) assist(ctx context.Context, userID string, state *AssistantState, question string) ([]Intent, error) {
	d.store.Delete(userID)

	c := d.tables.Copy()
	if state == nil || state.Step != StepQuestion {
		d.metrics.ObserveTransition(string(KindAssistant), string(OutcomeInvalid))
		return []Intent{text(c.FlowError)}, nil
	}

	answer, err := d.ask(ctx, question)
	if err != nil {
		d.metrics.ObserveTransition(string(KindAssistant), string(OutcomeInvalid))
		d.metrics.ObserveFailure("answer", string(d.policies.Answer))
		d.logger.Error("answer service failed", "error", err, "user_id", userID)
		if d.policies.Answer == NotifyUser {
			return []Intent{text(c.AnswerFailed), d.tables.FollowUpMenu()}, nil
		}
		return []Intent{d.tables.FollowUpMenu()}, nil
	}

	d.metrics.ObserveTransition(string(KindAssistant), string(OutcomeCompleted))
	return []Intent{text(answer), d.tables.FollowUpMenu()}, nil
}

func (d *Dispatcher) ask(ctx context.Context, question string) (string, error) {
	if d.answers == nil {
		return "", ErrNoAnswerService
	}
	ctx, span := d.tracer.Start(ctx, "flow.ask")
	defer span.End()

	start := time.Now()
	answer, err := d.answers.Ask(ctx, question)
	d.metrics.ObserveAnswerLatency(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", errors.New("flow: answer service returned an empty answer")
	}
	return answer, nil
}

// deliver sends intents in order. Failures are logged and skipped.
func (d *Dispatcher) deliver(ctx context.Context, userID string, intents []Intent) {
	for _, intent := range intents {
		if err := d.transport.Send(ctx, userID, intent); err != nil {
			d.metrics.ObserveFailure("transport", string(BestEffort))
			d.logger.Error("outbound send failed", "error", err, "user_id", userID, "kind", IntentKind(intent))
		}
	}
}

func (d *Dispatcher) markRead(ctx context.Context, messageID string) {
	if messageID == "" {
		return
	}
	if err := d.transport.MarkRead(ctx, messageID); err != nil {
		d.metrics.ObserveFailure("transport", string(BestEffort))
		d.logger.Error("mark read failed", "error", err, "message_id", messageID)
	}
}

// Sweep drops expired sessions when the store supports expiry.
func (d *Dispatcher) Sweep() int {
	sweeper, ok := d.store.(interface{ Sweep() int })
	if !ok {
		return 0
	}
	n := sweeper.Sweep()
	d.metrics.ObserveSwept(n)
	return n
}

func bodyOf(e Event) string {
	if t, ok := e.(TextEvent); ok {
		return strings.TrimSpace(t.Body)
	}
	return ""
}

// firstName returns the first word of the profile name, or the user id
// when the profile has no name.
func firstName(displayName, userID string) string {
	if fields := strings.Fields(displayName); len(fields) > 0 {
		return fields[0]
	}
	return userID
}
