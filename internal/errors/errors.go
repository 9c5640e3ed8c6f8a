package appErrors

import "fmt"

// ErrSessionNotFound is a sentinel error
type ErrSessionNotFound struct {
	SessionID int
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session with ID %d not found", e.SessionID)
}

// Helper constructor
func NewSessionNotFound(id int) error {
	return &ErrSessionNotFound{SessionID: id}
}

// ErrJoinCodeInvalid means no active session matched the code.
type ErrJoinCodeInvalid struct {
	Code string
}

func (e *ErrJoinCodeInvalid) Error() string {
	return fmt.Sprintf("no active session for join code %q", e.Code)
}

func NewJoinCodeInvalid(code string) error {
	return &ErrJoinCodeInvalid{Code: code}
}

// ErrJoinCodeExpired is distinct from invalid so callers can show
// "expired" rather than "invalid".
type ErrJoinCodeExpired struct {
	Code string
}

func (e *ErrJoinCodeExpired) Error() string {
	return fmt.Sprintf("join code %q has expired", e.Code)
}

func NewJoinCodeExpired(code string) error {
	return &ErrJoinCodeExpired{Code: code}
}

type ErrVolunteerNotFound struct {
	VolunteerID int
}

func (e *ErrVolunteerNotFound) Error() string {
	return fmt.Sprintf("volunteer with ID %d not found", e.VolunteerID)
}

func NewVolunteerNotFound(id int) error {
	return &ErrVolunteerNotFound{VolunteerID: id}
}

type ErrAssignmentNotFound struct {
	AssignmentID int
}

func (e *ErrAssignmentNotFound) Error() string {
	return fmt.Sprintf("assignment with ID %d not found", e.AssignmentID)
}

func NewAssignmentNotFound(id int) error {
	return &ErrAssignmentNotFound{AssignmentID: id}
}

// ErrInvalidTransition is returned when a status change is attempted on an
// assignment already in a terminal state.
type ErrInvalidTransition struct {
	AssignmentID int
	From         string
	To           string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("assignment %d cannot move from %s to %s", e.AssignmentID, e.From, e.To)
}

func NewInvalidTransition(id int, from, to string) error {
	return &ErrInvalidTransition{AssignmentID: id, From: from, To: to}
}

// ErrValidation reports a bad request payload. No state is mutated.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

func NewValidation(msg string) error {
	return &ErrValidation{Message: msg}
}
