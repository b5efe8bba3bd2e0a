package flow

import (
	"fmt"
	"time"
)

// advanceAppointment fills one field of the appointment and returns the
// next prompt. The last answer completes the flow.
func advanceAppointment(t *Tables, userID string, state *AppointmentState, body string, now time.Time) transition {
	c := t.Copy()
	if state == nil || state.Step == "" {
		return transition{clear: true, intents: []Intent{text(c.AppointmentStart)}, outcome: OutcomeMissing}
	}

	next := *state
	switch state.Step {
	case StepName:
		next.Name = body
		next.Step = StepCarType
		return advanced(Session{Kind: KindAppointment, Appointment: &next}, c.AskCarType)
	case StepCarType:
		next.CarType = body
		next.Step = StepVisitType
		return advanced(Session{Kind: KindAppointment, Appointment: &next}, c.AskVisitType)
	case StepVisitType:
		next.VisitType = body
		next.Step = StepPreferredDate
		return advanced(Session{Kind: KindAppointment, Appointment: &next}, c.AskPreferredDate)
	case StepPreferredDate:
		next.PreferredDate = body
		done := fmt.Sprintf(c.AppointmentDone, next.Name, next.VisitType, next.CarType, next.PreferredDate)
		return transition{
			clear: true,
			record: &Record{
				Destination: t.AppointmentSheet(),
				Fields: []string{
					userID,
					next.Name,
					next.CarType,
					next.VisitType,
					next.PreferredDate,
					formatTimestamp(now),
				},
			},
			intents: []Intent{text(done + c.LocationNotice), t.Location()},
			outcome: OutcomeCompleted,
		}
	default:
		return transition{clear: true, intents: []Intent{text(c.FlowError)}, outcome: OutcomeInvalid}
	}
}

func advanced(next Session, prompt string) transition {
	return transition{next: &next, intents: []Intent{text(prompt)}, outcome: OutcomeAdvanced}
}
