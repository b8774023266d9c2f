package stage

import "context"

// benignError is a generic wrapper for business-benign outcomes (duplicate
// URL, unclassifiable content): the retry path would produce the identical
// result forever, so the stage marks it Benign and a generic hook swallows
// it instead of burning the retry budget.
type benignError struct {
	msg string
}

func (e *benignError) Error() string { return e.msg }
func (e *benignError) Benign() bool  { return true }

// NewBenign wraps msg as a Benign error.
func NewBenign(msg string) error {
	return &benignError{msg: msg}
}

// SwallowBenign is an ErrorHook every stage with a benign-outcome case can
// reuse directly: ack without retrying whenever the process error
// identifies itself as Benign — dispatch here is the Benign interface
// check, not an open registry.
func SwallowBenign(ctx context.Context, err error, body []byte) bool {
	return IsBenign(err)
}

// permanentError wraps an outcome that retrying will never fix (wrong
// predecessor status, a payload that will never validate).
type permanentError struct {
	msg string
}

func (e *permanentError) Error() string  { return e.msg }
func (e *permanentError) Permanent() bool { return true }

// NewPermanent wraps msg as a Permanent error.
func NewPermanent(msg string) error {
	return &permanentError{msg: msg}
}
