package session

import "fmt"

type Status string

const (
	StatusSignedOut      Status = "signed_out"
	StatusAuthenticating Status = "authenticating"
	StatusAuthorized     Status = "authorized"
	StatusBootstrapping  Status = "bootstrapping"
	StatusReady          Status = "ready"
)

// transitions lists the legal next states. Any state may fall back to
// signed out.
var transitions = map[Status][]Status{
	StatusSignedOut:      {StatusAuthenticating},
	StatusAuthenticating: {StatusAuthorized, StatusSignedOut},
	StatusAuthorized:     {StatusBootstrapping, StatusSignedOut},
	StatusBootstrapping:  {StatusReady, StatusAuthorized, StatusSignedOut},
	StatusReady:          {StatusSignedOut},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: illegal transition %s -> %s", e.From, e.To)
}
