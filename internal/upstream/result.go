package upstream

import "fmt"

// Outcome classifies a call to the healthcare API.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeUnauthorized
	OutcomeNetworkError
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeOtherError:
		return "other_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result carries either the decoded payload or the reason there is none.
// Callers switch on Outcome; Err is set for every outcome except OK.
type Result[T any] struct {
	Outcome Outcome
	Status  int
	Data    T
	Err     error
}

func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Code   string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream returned status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}
