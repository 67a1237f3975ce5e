package engine

// Outcome is the terminal state of one (source, patch) pair.
type Outcome string

const (
	// OutcomeApplied means the patch was applied and written in place.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkippedMissingPatch means the patch file was absent; the run
	// continued with the next pair.
	OutcomeSkippedMissingPatch Outcome = "skipped-missing-patch"
	// OutcomeSkippedMissingSource means the source file was absent; the
	// run continued with the next pair.
	OutcomeSkippedMissingSource Outcome = "skipped-missing-source"
	// OutcomeVerificationFailed means the source did not match the patch
	// (or the container could not be verified at all). Fatal: applying a
	// wrong-source patch corrupts data with no easy detection afterward,
	// so the whole run aborts before any mutation of this file.
	OutcomeVerificationFailed Outcome = "verification-failed"
	// OutcomeApplyFailedRestored means the apply step failed and the
	// source was recovered from its backup. The run still aborts.
	OutcomeApplyFailedRestored Outcome = "apply-failed-restored"
	// OutcomeApplyFailedUnrestorable means the apply step failed and the
	// backup could not be restored either. Surfaced loudly; the file may
	// be in an inconsistent state.
	OutcomeApplyFailedUnrestorable Outcome = "apply-failed-unrestorable"
)

// Pair names one unit of work: a patch path relative to the patch root
// and a source path relative to the game root. Pairs are processed
// strictly in list order.
type Pair struct {
	PatchPath  string
	SourcePath string
}

// FileResult is the recorded outcome for one pair.
type FileResult struct {
	Pair    Pair
	Outcome Outcome
	Err     error
}

// Report aggregates per-file results for a run.
type Report struct {
	Results []FileResult
	Applied int
	Skipped int
	Aborted bool
}

func (r *Report) record(pair Pair, outcome Outcome, err error) {
	r.Results = append(r.Results, FileResult{Pair: pair, Outcome: outcome, Err: err})
	switch outcome {
	case OutcomeApplied:
		r.Applied++
	case OutcomeSkippedMissingPatch, OutcomeSkippedMissingSource:
		r.Skipped++
	}
}
