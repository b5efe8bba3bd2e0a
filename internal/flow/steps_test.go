package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceSaleIsDeterministic(t *testing.T) {
	tables := DefaultTables()
	state := &SaleState{Step: StepAskIntent}

	first := advanceSale(tables, "u1", state, "Vender", fixedNow)
	second := advanceSale(tables, "u1", state, "Vender", fixedNow)

	assert.Equal(t, first, second)
	assert.Equal(t, SaleState{Step: StepAskIntent}, *state, "input state must not be mutated")
	assert.Equal(t, OutcomeAdvanced, first.outcome)
	assert.Equal(t, SaleState{Step: StepAskVehicle, Intent: IntentSell}, *first.next.Sale)
}

func TestAdvanceSaleDoneStepIsInvalid(t *testing.T) {
	tr := advanceSale(DefaultTables(), "u1", &SaleState{Step: StepSaleDone}, "x", fixedNow)
	assert.True(t, tr.clear)
	assert.Equal(t, OutcomeInvalid, tr.outcome)
}

func TestAdvanceSaleMissingState(t *testing.T) {
	tr := advanceSale(DefaultTables(), "u1", nil, "x", fixedNow)
	assert.True(t, tr.clear)
	assert.Equal(t, OutcomeMissing, tr.outcome)
	assert.Len(t, tr.intents, 2)
}

func TestAdvanceAppointmentRecord(t *testing.T) {
	tables := DefaultTables().WithAppointmentSheet("Visitas")
	state := &AppointmentState{Step: StepPreferredDate, Name: "Ana", CarType: "SUV", VisitType: "visita"}

	tr := advanceAppointment(tables, "u1", state, "lunes", fixedNow)

	assert.True(t, tr.clear)
	assert.Equal(t, OutcomeCompleted, tr.outcome)
	assert.Equal(t, &Record{
		Destination: "Visitas",
		Fields:      []string{"u1", "Ana", "SUV", "visita", "lunes", "2025-03-10T14:30:05.123Z"},
	}, tr.record)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, NotifyUser, ParsePolicy(" NOTIFY_USER ", BestEffort))
	assert.Equal(t, BestEffort, ParsePolicy("best_effort", NotifyUser))
	assert.Equal(t, NotifyUser, ParsePolicy("", NotifyUser))
}
