package domain

// Status is the certificate lifecycle state of a custom domain.
//
// Transitions form an explicit state machine; anything outside the table
// below is rejected with ErrInvalidTransition. In particular a domain can
// never regress to Pending, and Failed can only leave through a fresh
// validation pass.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusIssuing    Status = "issuing"
	StatusValid      Status = "valid"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusValidating, StatusFailed},
	StatusValidating: {StatusIssuing, StatusFailed},
	StatusIssuing:    {StatusValid, StatusFailed},
	StatusValid:      {StatusValidating, StatusExpired, StatusFailed},
	StatusFailed:     {StatusValidating},
	StatusExpired:    {StatusValidating},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidating, StatusIssuing, StatusValid, StatusFailed, StatusExpired:
		return true
	}
	return false
}
