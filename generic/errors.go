/*
errors.go - Centralized error types for the household engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is() against the sentinels or with
  the helpers at the bottom of this file; the API maps the classes onto
  HTTP status codes.

ERROR CATEGORIES:
  1. Not found - A referenced note/list/task/user/prize/calendar is missing
  2. Path errors - An index path is malformed or points outside the tree
  3. Ledger errors - Double claims, empty claims, overdrafts, permissions
  4. Conflicts - Duplicate sources, statuses, users, achievements

USAGE:
  if errors.Is(err, generic.ErrAlreadyClaimed) {
      // points were collected earlier; nothing to do
  }

SEE ALSO:
  - path.go: Produces PathError
  - api/handlers.go: Maps classes to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNoteNotFound        = errors.New("note not found")
	ErrChecklistNotFound   = errors.New("checklist not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrStatusNotFound      = errors.New("status not found")
	ErrUserNotFound        = errors.New("points user not found")
	ErrPrizeNotFound       = errors.New("prize not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrSourceNotFound      = errors.New("ical source not found")
	ErrCalendarNotFound    = errors.New("calendar not found")

	// ErrMalformedPath is returned for index paths that are not dotted
	// non-negative integers.
	ErrMalformedPath = errors.New("malformed index path")

	// ErrPathOutOfRange is returned when any segment of a path addresses a
	// position that does not exist at that depth.
	ErrPathOutOfRange = errors.New("index path out of range")

	// ErrAlreadyClaimed is returned when an item's points were collected
	// before. Claims happen exactly once per item.
	ErrAlreadyClaimed = errors.New("points already claimed")

	// ErrNoPoints is returned when claiming an item that carries no points.
	ErrNoPoints = errors.New("item has no points")

	// ErrInsufficientPoints is returned when a redemption exceeds the balance.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrNotAdmin is returned when an admin-only operation is attempted by
	// someone outside points_admins.
	ErrNotAdmin = errors.New("admin privileges required")

	ErrDuplicateSource      = errors.New("ical source already imported")
	ErrDuplicateStatus      = errors.New("status already exists")
	ErrDuplicateUser        = errors.New("points user already exists")
	ErrDuplicateAchievement = errors.New("achievement already awarded")

	// ErrInvalidInput covers field-level validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PathError describes where path resolution stopped.
type PathError struct {
	Path  string
	Depth int // zero-based segment that failed
	Index int // requested position at that depth
	Len   int // number of items available at that depth
}

func (e *PathError) Error() string {
	return fmt.Sprintf("index path %q: segment %d wants position %d but only %d items exist",
		e.Path, e.Depth, e.Index, e.Len)
}

func (e *PathError) Unwrap() error {
	return ErrPathOutOfRange
}

// InsufficientPointsError provides details about a failed redemption.
type InsufficientPointsError struct {
	UserID    string
	Balance   int
	Requested int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: %s has %d, needs %d", e.UserID, e.Balance, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid is shorthand for building an InvalidInputError.
func Invalid(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoteNotFound) ||
		errors.Is(err, ErrChecklistNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPrizeNotFound) ||
		errors.Is(err, ErrAchievementNotFound) ||
		errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrCalendarNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedPath) ||
		errors.Is(err, ErrPathOutOfRange) ||
		errors.Is(err, ErrNoPoints) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidInput)
}

// IsConflict returns true if the request clashes with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrDuplicateSource) ||
		errors.Is(err, ErrDuplicateStatus) ||
		errors.Is(err, ErrDuplicateUser) ||
		errors.Is(err, ErrDuplicateAchievement)
}

// IsForbidden returns true if the actor lacks the required role.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrNotAdmin)
}
