package claim

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrAttemptIsNotConstructed is returned when an Attempt was not built by NewAttempt.
var ErrAttemptIsNotConstructed = errors.New("Attempt must be created via NewAttempt constructor")

// ErrAttemptIsResolved is returned when a resolved attempt is resolved again.
var ErrAttemptIsResolved = errors.New("claim attempt is already resolved")

// Outcome is the result of a claim attempt.
type Outcome int

const (
	// Pending attempts wait for the server's answer.
	Pending Outcome = iota + 1
	// Success means the server granted the order to this courier.
	Success
	// Conflict means another courier claimed the order first.
	Conflict
	// Failed covers network errors and every non-conflict server error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Conflict:
		return "conflict"
	case Failed:
		return "error"
	}
	return "unknown"
}

// Attempt records one claim request and how it ended.
//
// An attempt starts Pending and is resolved exactly once. Resolution methods
// return a new Attempt; the receiver is left untouched so a pending attempt
// held by the in-flight guard stays comparable.
type Attempt struct {
	id          kernel.UUID
	orderID     string
	requestedAt time.Time
	outcome     Outcome
	detail      string
	order       *order.Order
	err         error
	guard       guard.ConstructorGuard
}

// NewAttempt opens a pending attempt for orderID.
//
// Example:
//
//	a, err := claim.NewAttempt("1042", time.Now())
//	// ... call the server ...
//	a, err = a.Succeed(serverOrder)
func NewAttempt(orderID string, requestedAt time.Time) (Attempt, error) {
	if strings.TrimSpace(orderID) == "" {
		return Attempt{}, errs.NewValueIsRequiredError("orderID")
	}
	if requestedAt.IsZero() {
		return Attempt{}, errs.NewValueIsRequiredError("requestedAt")
	}

	return Attempt{
		id:          kernel.NewUUID(),
		orderID:     orderID,
		requestedAt: requestedAt,
		outcome:     Pending,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (a Attempt) Validate() error {
	return a.guard.Validate(ErrAttemptIsNotConstructed)
}

// ID returns the attempt identifier sent as the request id.
func (a Attempt) ID() kernel.UUID {
	return a.id
}

func (a Attempt) OrderID() string {
	return a.orderID
}

func (a Attempt) RequestedAt() time.Time {
	return a.requestedAt
}

func (a Attempt) Outcome() Outcome {
	return a.outcome
}

// Detail returns the server's or the client's explanation of the outcome.
func (a Attempt) Detail() string {
	return a.detail
}

// Order returns the granted order on Success, the order marked claimed-by-other
// on Conflict when it was known, and nil otherwise.
func (a Attempt) Order() *order.Order {
	return a.order
}

// Err returns the cause of a Failed attempt.
func (a Attempt) Err() error {
	return a.err
}

func (a Attempt) IsPending() bool {
	return a.outcome == Pending
}

// Succeed resolves the attempt with the order the server granted.
func (a Attempt) Succeed(granted *order.Order) (Attempt, error) {
	if err := a.checkPending(); err != nil {
		return a, err
	}
	if err := granted.Validate(); err != nil {
		return a, errs.NewValueIsRequiredErrorWithCause("order", err)
	}
	a.outcome = Success
	a.order = granted
	return a, nil
}

// Lose resolves the attempt as lost to another courier. lost is the order as
// last seen, already marked claimed-by-other; it may be nil.
func (a Attempt) Lose(detail string, lost *order.Order) (Attempt, error) {
	if err := a.checkPending(); err != nil {
		return a, err
	}
	if lost != nil {
		if lost.Validate() != nil || lost.Status() != order.ClaimedByOther {
			return a, errs.NewValueIsInvalidError("order")
		}
		a.order = lost
	}
	a.outcome = Conflict
	a.detail = detail
	return a, nil
}

// Fail resolves the attempt with a transport or server error.
func (a Attempt) Fail(cause error) (Attempt, error) {
	if err := a.checkPending(); err != nil {
		return a, err
	}
	if cause == nil {
		return a, errs.NewValueIsRequiredError("cause")
	}
	a.outcome = Failed
	a.err = cause
	a.detail = cause.Error()
	return a, nil
}

func (a Attempt) checkPending() error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.outcome != Pending {
		return fmt.Errorf("%w: %s", ErrAttemptIsResolved, a.outcome)
	}
	return nil
}
