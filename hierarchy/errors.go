/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (workflow, payments, API) wrap these with additional context.

ERROR CATEGORIES:
  1. Not-found errors - referenced rows that do not exist
  2. Validation errors - business rule violations, rejected before mutation
  3. Authorization errors - payer/scope mismatches
  4. Timeout - the bounded approval sequence expired

Cycles and self-parent rows are deliberately NOT errors: traversal truncates
and logs a warning instead, favoring availability of the commission system
over strict hierarchy validation.

SEE ALSO:
  - walker.go: The tolerant cycle handling
  - payments/resolver.go: Authorization and balance checks
*/
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPromoterNotFound is returned when a referenced promoter does not exist.
	ErrPromoterNotFound = errors.New("promoter not found")

	// ErrAdminNotFound is returned when a referenced admin does not exist.
	ErrAdminNotFound = errors.New("admin not found")

	// ErrBookingNotFound is returned when a referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingNotPending is returned when approving or rejecting a booking
	// that has already been processed. Guards the approve/approve race.
	ErrBookingNotPending = errors.New("booking is not pending")

	// ErrSignupNotFound is returned when a referenced signup request does not exist.
	ErrSignupNotFound = errors.New("signup request not found")

	// ErrSignupNotPending is returned when resolving an already-resolved signup.
	ErrSignupNotPending = errors.New("signup request is not pending")

	// ErrInvalidPercentage is returned for commission rates outside [0, 100].
	ErrInvalidPercentage = errors.New("commission percentage must be between 0 and 100")

	// ErrSelfParent is returned when a promoter would be assigned itself as
	// parent. Stored self-parent rows are tolerated by the walker; creating
	// new ones is rejected.
	ErrSelfParent = errors.New("promoter cannot be its own parent")

	// ErrParentCycle is returned when a parent assignment would close a cycle.
	ErrParentCycle = errors.New("parent assignment would create a cycle")

	// ErrInvalidAmount is returned for non-positive monetary amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrExceedsOutstanding is returned when a payment exceeds the
	// recipient's outstanding commission balance.
	ErrExceedsOutstanding = errors.New("payment exceeds outstanding balance")

	// ErrNotAuthorized is returned when the acting admin or promoter is not
	// entitled to perform the operation (wrong payer, out-of-scope approval).
	ErrNotAuthorized = errors.New("not authorized")

	// ErrApprovalTimeout is returned when the approval sequence exceeds its
	// wall-clock bound. The booking remains in its last committed state.
	ErrApprovalTimeout = errors.New("approval timed out")

	// ErrDuplicateHandle is returned when a handle is already taken.
	ErrDuplicateHandle = errors.New("handle already in use")

	// ErrInvalidHandle is returned for an empty handle.
	ErrInvalidHandle = errors.New("handle must not be empty")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsOutstandingError reports how far a payment overshoots the balance.
type ExceedsOutstandingError struct {
	RecipientID NodeID
	Outstanding decimal.Decimal
	Requested   decimal.Decimal
}

func (e *ExceedsOutstandingError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance %s for promoter %d",
		e.Requested, e.Outstanding, e.RecipientID)
}

func (e *ExceedsOutstandingError) Unwrap() error { return ErrExceedsOutstanding }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPromoterNotFound) ||
		errors.Is(err, ErrAdminNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrSignupNotFound)
}

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrSelfParent) ||
		errors.Is(err, ErrParentCycle) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDuplicateHandle) ||
		errors.Is(err, ErrInvalidHandle) ||
		errors.Is(err, ErrBookingNotPending) ||
		errors.Is(err, ErrSignupNotPending)
}

// IsAuthorization returns true for payer/scope rejections.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrExceedsOutstanding)
}
