package fund

import (
	"fmt"
	"net/http"
)

// Stable numeric codes surfaced to callers. 516, 517 and 526 predate this
// service and must not change; the rest are assigned in the same block.
const (
	CodeLiquidationActive    uint32 = 516
	CodeInvalidAuthority     uint32 = 517
	CodeIllegalOwner         uint32 = 518
	CodeInvalidMint          uint32 = 519
	CodeAccountCountMismatch uint32 = 520
	CodeStaleValuation       uint32 = 522
	CodeStaleOraclePrice     uint32 = 523
	CodeFeeOverflow          uint32 = 524
	CodeOraclePriceError     uint32 = 525
	CodeNoPendingRequest     uint32 = 526
	CodeZeroAmount           uint32 = 530
	CodeSupplyExceeded       uint32 = 531
	CodeAmountTooSmall       uint32 = 532
	CodeCustodyUnderfunded   uint32 = 533
)

// ErrorClass groups error kinds by how the caller should react.
type ErrorClass int

const (
	// ClassAuthorization covers wrong signer, owner or account layout.
	ClassAuthorization ErrorClass = iota
	// ClassPrecondition covers state gates: liquidation, missing request,
	// stale NAV or oracle data.
	ClassPrecondition
	// ClassArithmetic covers overflow and degenerate amounts.
	ClassArithmetic
	// ClassInsufficiency covers funding shortfalls.
	ClassInsufficiency
)

// ProgramError is a settlement failure with a stable numeric code. All
// program errors abort the call before any asset movement.
type ProgramError struct {
	Code    uint32
	Class   ErrorClass
	Message string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("fund error %d: %s", e.Code, e.Message)
}

// Is matches program errors by code so sentinel comparison works across
// wrapped copies.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy carrying extra diagnostic context.
func (e *ProgramError) WithDetail(format string, args ...any) *ProgramError {
	return &ProgramError{
		Code:    e.Code,
		Class:   e.Class,
		Message: fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...)),
	}
}

// JSON renders the error body for the API surface; the numeric code is the
// stable contract, the message is advisory.
func (e *ProgramError) JSON() any {
	return map[string]any{
		"error": map[string]any{
			"code":    e.Code,
			"message": e.Message,
		},
	}
}

// HTTPStatus maps the error class to an HTTP status for the API surface.
func (e *ProgramError) HTTPStatus() int {
	switch e.Class {
	case ClassAuthorization:
		return http.StatusForbidden
	case ClassPrecondition:
		return http.StatusConflict
	case ClassArithmetic:
		return http.StatusUnprocessableEntity
	case ClassInsufficiency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrLiquidationActive    = &ProgramError{CodeLiquidationActive, ClassPrecondition, "fund is in liquidation state"}
	ErrInvalidAuthority     = &ProgramError{CodeInvalidAuthority, ClassAuthorization, "invalid fund authority account"}
	ErrIllegalOwner         = &ProgramError{CodeIllegalOwner, ClassAuthorization, "invalid withdrawal destination account owner"}
	ErrInvalidMint          = &ProgramError{CodeInvalidMint, ClassAuthorization, "token mint or custody account mismatch"}
	ErrAccountCountMismatch = &ProgramError{CodeAccountCountMismatch, ClassAuthorization, "unexpected account set layout"}
	ErrStaleValuation       = &ProgramError{CodeStaleValuation, ClassPrecondition, "fund assets valuation is stale"}
	ErrStaleOraclePrice     = &ProgramError{CodeStaleOraclePrice, ClassPrecondition, "oracle observation is too old"}
	ErrFeeOverflow          = &ProgramError{CodeFeeOverflow, ClassArithmetic, "fee computation overflow"}
	ErrOraclePriceError     = &ProgramError{CodeOraclePriceError, ClassPrecondition, "oracle price outside error tolerance"}
	ErrNoPendingRequest     = &ProgramError{CodeNoPendingRequest, ClassPrecondition, "no pending withdrawals found"}
	ErrZeroAmount           = &ProgramError{CodeZeroAmount, ClassInsufficiency, "insufficient user funds"}
	ErrSupplyExceeded       = &ProgramError{CodeSupplyExceeded, ClassInsufficiency, "insufficient fund supply amount"}
	ErrAmountTooSmall       = &ProgramError{CodeAmountTooSmall, ClassInsufficiency, "withdrawal amount is too small"}
	ErrCustodyUnderfunded   = &ProgramError{CodeCustodyUnderfunded, ClassInsufficiency, "withdrawal for this amount couldn't be completed at this time, contact fund administrator"}
)
