package flow

import "time"

// Kind identifies which flow a user is in.
type Kind string

const (
	KindNone        Kind = ""
	KindAppointment Kind = "appointment"
	KindSale        Kind = "sale"
	KindAssistant   Kind = "assistant"
)

// AppointmentStep is the field the next appointment answer fills.
type AppointmentStep string

const (
	StepName          AppointmentStep = "name"
	StepCarType       AppointmentStep = "carType"
	StepVisitType     AppointmentStep = "visitType"
	StepPreferredDate AppointmentStep = "preferredDate"
)

// AppointmentState collects a dealership visit or quote request.
type AppointmentState struct {
	Step          AppointmentStep
	Name          string
	CarType       string
	VisitType     string
	PreferredDate string
}

// SaleStep is the position in the buy/sell flow.
type SaleStep string

const (
	StepAskIntent  SaleStep = "askIntent"
	StepAskVehicle SaleStep = "askVehicle"
	StepSaleDone   SaleStep = "done"
)

// Sale intents as typed by the user.
const (
	IntentBuy  = "comprar"
	IntentSell = "vender"
)

// SaleState collects a buy or sell lead.
type SaleState struct {
	Step    SaleStep
	Intent  string
	Vehicle string
}

// AssistantStep is the position in the assistant flow. There is only one.
type AssistantStep string

const StepQuestion AssistantStep = "question"

// AssistantState marks a user whose next text is a question for the
// answer service.
type AssistantState struct {
	Step AssistantStep
}

// Session is the per-user conversation state. Exactly one of the flow
// payloads matches Kind; a user can never hold two flows at once because
// the store keeps a single Session per user.
type Session struct {
	Kind        Kind
	Appointment *AppointmentState
	Sale        *SaleState
	Assistant   *AssistantState
	UpdatedAt   time.Time
}

// NewAppointmentSession starts the appointment flow at its first step.
func NewAppointmentSession() Session {
	return Session{Kind: KindAppointment, Appointment: &AppointmentState{Step: StepName}}
}

// NewSaleSession starts the buy/sell flow at its first step.
func NewSaleSession() Session {
	return Session{Kind: KindSale, Sale: &SaleState{Step: StepAskIntent}}
}

// NewAssistantSession marks the user as about to ask a question.
func NewAssistantSession() Session {
	return Session{Kind: KindAssistant, Assistant: &AssistantState{Step: StepQuestion}}
}

// Active reports whether the session holds a live flow.
func (s Session) Active() bool {
	return s.Kind != KindNone
}

// clone returns a deep copy so callers never share payload pointers with
// the store.
func (s Session) clone() Session {
	out := Session{Kind: s.Kind, UpdatedAt: s.UpdatedAt}
	if s.Appointment != nil {
		a := *s.Appointment
		out.Appointment = &a
	}
	if s.Sale != nil {
		v := *s.Sale
		out.Sale = &v
	}
	if s.Assistant != nil {
		v := *s.Assistant
		out.Assistant = &v
	}
	return out
}
