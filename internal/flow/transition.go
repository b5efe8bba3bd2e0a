package flow

import "time"

// Record is a row submitted to the persistence sink.
type Record struct {
	Destination string
	Fields      []string
}

// Outcome labels what a step did, for logs and metrics.
type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeRetry     Outcome = "retry"
	OutcomeCompleted Outcome = "completed"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeMissing   Outcome = "missing"
)

// transition is the result of applying one user message to a flow. When
// clear is set the user's session is removed; otherwise next (if non-nil)
// replaces it.
type transition struct {
	next    *Session
	clear   bool
	intents []Intent
	record  *Record
	outcome Outcome
}

// timestampLayout matches JavaScript's Date.toISOString, which the sheets
// were originally populated with.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func text(body string) Intent {
	return PlainText{Body: body}
}
