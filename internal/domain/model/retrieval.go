package model

// RetrievalResult is the structured answer returned by the retrieval-context
// service for a personal-fit query. Sources are kept as loose maps since
// their shape belongs to the retrieval collaborator; the pipeline persists
// them verbatim in the per-job debug artifact.
type RetrievalResult struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`

	// Raw is the unparsed service response, persisted as the per-job
	// debug artifact. Not part of the wire format.
	Raw []byte `json:"-"`
}

// ScoredFit pairs an extracted numeric score with its derived best-fit
// flag. The pairing is an invariant: is_best_fit is always score >= 7.0.
type ScoredFit struct {
	Score     float64
	IsBestFit bool
}

// FitnessAnalysis is the outcome of the LLM fitness call: the free-text
// analysis plus the score derived from it. Fit is nil when no score could
// be extracted from the text; the backfill stage retries extraction later.
type FitnessAnalysis struct {
	Text string
	Fit  *ScoredFit
}
