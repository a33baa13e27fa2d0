// Package confirm defines the abstract user-confirmation prompts the
// signing engine invokes. Buttons, screens, and QR rendering are external
// collaborators; the engine only ever sees a Prompter.
package confirm

// Prompter is the set of confirmation prompts §4.4 names. Every method
// returns false to mean "the user rejected"; the engine treats any false
// return as a fatal ActionCancelled failure.
type Prompter interface {
	// ConfirmOutput asks the user to approve sending amount (already
	// formatted for display, e.g. "0.00090000 BTC") to address. Invoked once
	// per non-change output during Phase 1's output walk.
	ConfirmOutput(amount, address string) bool

	// ConfirmFeeOverThreshold asks the user to approve a fee that exceeds
	// the coin's per-kilobyte threshold. Invoked at most once per
	// session.
	ConfirmFeeOverThreshold(fee string) bool

	// ConfirmTransaction asks for final approval of the total amount sent
	// (excluding change) and the fee. Invoked exactly once, after the
	// output walk and fee check both pass.
	ConfirmTransaction(total, fee string) bool
}

// AutoApprove approves every prompt without user interaction. Used by
// hosts that trust their own inputs (scripted signing pipelines, CI) and
// by tests exercising the happy path.
type AutoApprove struct{}

func (AutoApprove) ConfirmOutput(string, string) bool      { return true }
func (AutoApprove) ConfirmFeeOverThreshold(string) bool    { return true }
func (AutoApprove) ConfirmTransaction(string, string) bool { return true }

// Scripted replays a fixed, ordered sequence of answers, one per call
// across all three methods combined, in call order. It is a test double
// for exercising specific cancellation points (output, fee, or final
// confirmation rejected):
// construct with the exact number of expected prompts and set the one
// that should return false.
type Scripted struct {
	answers []bool
	cursor  int
}

// NewScripted builds a Scripted prompter that answers each successive
// call with the next value in answers, in order. Calling past the end of
// answers panics: a test that overruns its script has a bug, not a
// legitimate "no more answers" case.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next() bool {
	v := s.answers[s.cursor]
	s.cursor++
	return v
}

func (s *Scripted) ConfirmOutput(string, string) bool       { return s.next() }
func (s *Scripted) ConfirmFeeOverThreshold(string) bool     { return s.next() }
func (s *Scripted) ConfirmTransaction(string, string) bool  { return s.next() }
