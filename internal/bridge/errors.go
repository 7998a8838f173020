package bridge

import (
	"errors"
	"fmt"
)

// Code classifies a bridge failure.
type Code string

const (
	CodeBridgeBlocked       Code = "BRIDGE_BLOCKED"
	CodeAssetBlocked        Code = "ASSET_BLOCKED"
	CodeUnsupportedAsset    Code = "UNSUPPORTED_ASSET"
	CodeAmountTooLow        Code = "AMOUNT_TOO_LOW"
	CodeChainUnavailable    Code = "CHAIN_UNAVAILABLE"
	CodeDirectionBlocked    Code = "DIRECTION_BLOCKED"
	CodeCanTransferDeclined Code = "CAN_TRANSFER_DECLINED"
	CodeProviderError       Code = "PROVIDER_ERROR"
)

var codeText = map[Code]string{
	CodeBridgeBlocked:       "bridge blocked",
	CodeAssetBlocked:        "asset blocked",
	CodeUnsupportedAsset:    "asset not found",
	CodeAmountTooLow:        "amount too low",
	CodeChainUnavailable:    "chain unavailable",
	CodeDirectionBlocked:    "direction blocked",
	CodeCanTransferDeclined: "transfer declined",
	CodeProviderError:       "provider error",
}

// Error is the typed failure returned by the client. errors.Is matches on
// Code alone, so the sentinels below can be used as targets.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

var (
	ErrBridgeBlocked       = &Error{Code: CodeBridgeBlocked}
	ErrAssetBlocked        = &Error{Code: CodeAssetBlocked}
	ErrUnsupportedAsset    = &Error{Code: CodeUnsupportedAsset}
	ErrAmountTooLow        = &Error{Code: CodeAmountTooLow}
	ErrChainUnavailable    = &Error{Code: CodeChainUnavailable}
	ErrDirectionBlocked    = &Error{Code: CodeDirectionBlocked}
	ErrCanTransferDeclined = &Error{Code: CodeCanTransferDeclined}
	ErrProvider            = &Error{Code: CodeProviderError}

	// ErrNoUsableAdapter is the cause of the provider error returned when no
	// adapter is registered for a chain kind or the registered one declines.
	ErrNoUsableAdapter = errors.New("no usable adapter")
)

func newError(code Code, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg}
}

func wrapError(code Code, cause error, format string, args ...any) *Error {
	e := newError(code, format, args...)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	text, ok := codeText[e.Code]
	if !ok {
		text = string(e.Code)
	}
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", text, e.Message, e.Cause)
	case e.Message != "":
		return text + ": " + e.Message
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", text, e.Cause)
	default:
		return text
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
