package flow

import (
	"fmt"
	"time"
)

func isSaleIntent(normalized string) bool {
	return normalized == IntentBuy || normalized == IntentSell
}

// advanceSale moves the buy/sell flow forward. Answers that do not fit the
// current step re-prompt and keep the state as is; the session is still
// written back so an active user does not expire.
func advanceSale(t *Tables, userID string, state *SaleState, body string, now time.Time) transition {
	c := t.Copy()
	if state == nil || state.Step == "" {
		return transition{clear: true, intents: []Intent{text(c.Fallback), t.MainMenu()}, outcome: OutcomeMissing}
	}

	normalized := Normalize(body)
	switch state.Step {
	case StepAskIntent:
		if !isSaleIntent(normalized) {
			return retry(state, c.SaleIntentRetry)
		}
		next := SaleState{Step: StepAskVehicle, Intent: normalized}
		return advanced(Session{Kind: KindSale, Sale: &next}, c.AskVehicle)
	case StepAskVehicle:
		if isSaleIntent(normalized) {
			return retry(state, c.VehicleRetry)
		}
		vehicle := body
		return transition{
			clear: true,
			record: &Record{
				Destination: SaleSheet(state.Intent),
				Fields:      []string{userID, state.Intent, vehicle, formatTimestamp(now)},
			},
			intents: []Intent{text(fmt.Sprintf(c.SaleDone, vehicle)), t.Location()},
			outcome: OutcomeCompleted,
		}
	default:
		return transition{clear: true, intents: []Intent{text(c.FlowError)}, outcome: OutcomeInvalid}
	}
}

func retry(state *SaleState, prompt string) transition {
	same := *state
	return transition{
		next:    &Session{Kind: KindSale, Sale: &same},
		intents: []Intent{text(prompt)},
		outcome: OutcomeRetry,
	}
}
