package engine

import "fmt"

// Stable error codes surfaced to API callers. Client input and
// routing-impossible errors are deterministic and safe to retry only after
// changing the input; *_FETCH_FAILED and PLAN_BUILD_FAILED may be transient.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeUnknownNetwork        = "UNKNOWN_NETWORK"
	CodeTokenResolutionFailed = "TOKEN_RESOLUTION_FAILED"
	CodeTokenFamilyMismatch   = "TOKEN_FAMILY_MISMATCH"
	CodeInvalidTokenFormat    = "INVALID_TOKEN_FORMAT"
	CodeUnsupportedAsset      = "UNSUPPORTED_ASSET"
	CodeUnsupportedPair       = "UNSUPPORTED_PAIR"
	CodeAmountTooLow          = "AMOUNT_TOO_LOW"
	CodeNotImplemented        = "NOT_IMPLEMENTED"
	CodePlanBuildFailed       = "PLAN_BUILD_FAILED"

	CodeRateLimited = "RATE_LIMITED"

	CodeMissingWalletAddress    = "MISSING_WALLET_ADDRESS"
	CodeTransactionCreateFailed = "TRANSACTION_CREATE_FAILED"
	CodeStatusFetchFailed       = "STATUS_FETCH_FAILED"
)

// PlanError is a structured, expected negative outcome. Lower-level
// components return these as values; only truly unexpected conditions
// propagate as plain errors and are caught at the HTTP boundary.
type PlanError struct {
	Code    string
	Message string
	Debug   map[string]any
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func planErr(code, format string, args ...any) *PlanError {
	return &PlanError{Code: code, Message: fmt.Sprintf(format, args...)}
}
