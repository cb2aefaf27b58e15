package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ConflictError is returned when a compare-and-swap lost a race. Current holds
// the state observed after the loss so the caller can retry with intent.
type ConflictError struct {
	Message string
	Current string
}

func (e *ConflictError) Error() string {
	if e.Current != "" {
		return fmt.Sprintf("%s (current status: %s)", e.Message, e.Current)
	}
	return e.Message
}

func NewConflictError(message string, current string) *ConflictError {
	return &ConflictError{Message: message, Current: current}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type InvalidTransitionError struct {
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Requested)
}

func NewInvalidTransitionError(current, requested string) *InvalidTransitionError {
	return &InvalidTransitionError{Current: current, Requested: requested}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if stderrors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

type InvalidStateError struct {
	Message string
	Current string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s (current status: %s)", e.Message, e.Current)
}

func NewInvalidStateError(message string, current string) *InvalidStateError {
	return &InvalidStateError{Message: message, Current: current}
}

func IsInvalidStateError(err error) (*InvalidStateError, bool) {
	var ise *InvalidStateError
	if stderrors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

type SignatureMismatchError struct {
	Message        string
	GatewayOrderID string
}

func (e *SignatureMismatchError) Error() string {
	return e.Message
}

func NewSignatureMismatchError(message string, gatewayOrderID string) *SignatureMismatchError {
	return &SignatureMismatchError{Message: message, GatewayOrderID: gatewayOrderID}
}

func IsSignatureMismatchError(err error) (*SignatureMismatchError, bool) {
	var sme *SignatureMismatchError
	if stderrors.As(err, &sme) {
		return sme, true
	}
	return nil, false
}

// UpstreamUnavailableError is the only error class callers may retry.
type UpstreamUnavailableError struct {
	Message string
	Cause   error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Cause
}

func NewUpstreamUnavailableError(message string, cause error) *UpstreamUnavailableError {
	return &UpstreamUnavailableError{Message: message, Cause: cause}
}

func IsUpstreamUnavailableError(err error) (*UpstreamUnavailableError, bool) {
	var ue *UpstreamUnavailableError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

type EmptyOrderError struct{}

func (e *EmptyOrderError) Error() string {
	return "order must contain at least one file"
}

func NewEmptyOrderError() *EmptyOrderError {
	return &EmptyOrderError{}
}

func IsEmptyOrderError(err error) (*EmptyOrderError, bool) {
	var eoe *EmptyOrderError
	if stderrors.As(err, &eoe) {
		return eoe, true
	}
	return nil, false
}

type MissingRateError struct {
	PrintType string
	PaperSize string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no rate for %s/%s", e.PrintType, e.PaperSize)
}

func NewMissingRateError(printType, paperSize string) *MissingRateError {
	return &MissingRateError{PrintType: printType, PaperSize: paperSize}
}

func IsMissingRateError(err error) (*MissingRateError, bool) {
	var mre *MissingRateError
	if stderrors.As(err, &mre) {
		return mre, true
	}
	return nil, false
}

// IncompleteRateCardError lists every print configuration of an order that the
// shop's rate card does not price.
type IncompleteRateCardError struct {
	ShopID  string
	Missing []string
}

func (e *IncompleteRateCardError) Error() string {
	return fmt.Sprintf("rate card of shop %s has no rate for %s", e.ShopID, strings.Join(e.Missing, ", "))
}

func NewIncompleteRateCardError(shopID string, missing []string) *IncompleteRateCardError {
	return &IncompleteRateCardError{ShopID: shopID, Missing: missing}
}

func IsIncompleteRateCardError(err error) (*IncompleteRateCardError, bool) {
	var irc *IncompleteRateCardError
	if stderrors.As(err, &irc) {
		return irc, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
