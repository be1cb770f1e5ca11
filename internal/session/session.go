// Package session tracks signed-in principals. Each session owns one
// controller; ending the session cancels the controller's tasks.
package session

import (
	"sync"
	"time"

	"github.com/xxxsen/justnotes/internal/controller"
	"github.com/xxxsen/justnotes/internal/model"
)

type Session struct {
	ID        string
	Principal *model.Principal
	CreatedAt time.Time

	mu         sync.RWMutex
	status     Status
	controller *controller.Controller
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Controller is nil until the session is authorized.
func (s *Session) Controller() *controller.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller
}

func (s *Session) transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.status, to) {
		return &TransitionError{From: s.status, To: to}
	}
	s.status = to
	return nil
}

func (s *Session) setController(c *controller.Controller) {
	s.mu.Lock()
	s.controller = c
	s.mu.Unlock()
}

// end moves the session to signed out and returns its controller, if any.
func (s *Session) end() *controller.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusSignedOut
	return s.controller
}
