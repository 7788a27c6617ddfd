package driver

// Phase labels coarse progress through a fill run.
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseParsing   Phase = "parsing_documents"
	PhaseResolving Phase = "resolving_rows"
	PhaseWriting   Phase = "writing_output"
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
)

// ProgressFunc receives phase transitions and, for row-wise phases, a
// current/total pair. Total is 0 when unknown.
type ProgressFunc func(phase Phase, current, total int)
