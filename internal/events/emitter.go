package events

import "log/slog"

// Emitter publishes stage-transition events. Emission is fire-and-forget:
// a failed emit never blocks or rolls back a committed transition.
type Emitter interface {
	Emit(event StageEvent)
}

// LogEmitter writes events to the structured log.
type LogEmitter struct{}

// NewLogEmitter returns a log-backed emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (e *LogEmitter) Emit(event StageEvent) {
	slog.Info("stage transition",
		"contract_id", event.ContractID,
		"from_stage", event.FromStage,
		"to_stage", event.ToStage,
		"note", event.Note,
		"at", event.Timestamp,
	)
}

// MultiEmitter fans one event out to several emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter combines emitters into one.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event StageEvent) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}
