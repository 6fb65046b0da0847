package contracts

import (
	"errors"

	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
)

var (
	ErrInvalidRange             = errors.New("start_date must be before end_date")
	ErrDurationTooShort         = errors.New("contract must last at least one day")
	ErrCarNotFound              = errors.New("car not found")
	ErrCarUnavailable           = errors.New("car is not available")
	ErrCustomerNotFound         = errors.New("customer not found")
	ErrContractNotFound         = errors.New("contract not found")
	ErrCancellationWindowClosed = errors.New("contract has already started")
	ErrAlreadyTerminated        = errors.New("contract is already terminated")
)

var sentinelCodes = []struct {
	err    error
	code   pkgerrors.Code
	reason string
}{
	{ErrInvalidRange, pkgerrors.CodeValidation, "invalid_range"},
	{ErrDurationTooShort, pkgerrors.CodeValidation, "duration_too_short"},
	{ErrCarNotFound, pkgerrors.CodeNotFound, "car_not_found"},
	{ErrCarUnavailable, pkgerrors.CodeValidation, "car_unavailable"},
	{ErrCustomerNotFound, pkgerrors.CodeNotFound, "customer_not_found"},
	{ErrContractNotFound, pkgerrors.CodeNotFound, "contract_not_found"},
	{ErrCancellationWindowClosed, pkgerrors.CodeValidation, "cancellation_window_closed"},
	{ErrAlreadyTerminated, pkgerrors.CodeStateConflict, "already_terminated"},
}

// fail wraps a sentinel with its API error code.
func fail(sentinel error) *pkgerrors.Error {
	for _, s := range sentinelCodes {
		if s.err == sentinel {
			return pkgerrors.Wrap(s.code, sentinel, sentinel.Error())
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, sentinel, "unexpected contract error")
}

// rejectionReason names the business rule behind err, or "" when err is not a rule violation.
func rejectionReason(err error) string {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.reason
		}
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		return "validation"
	}
	return ""
}
