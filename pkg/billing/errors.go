package billing

import "errors"

// Kind classifies an operation failure. The HTTP layer maps kinds to
// status codes.
type Kind string

const (
	KindLimitReached         Kind = "limit_reached"
	KindNoPaymentMethod      Kind = "no_payment_method"
	KindTooManyUsers         Kind = "too_many_users"
	KindNoActiveSubscription Kind = "no_active_subscription"
	KindTermsNotAccepted     Kind = "terms_not_accepted"
	KindForbidden            Kind = "forbidden"
	KindNotEntitled          Kind = "not_entitled"
	KindGatewayUnavailable   Kind = "gateway_unavailable"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
)

// Client-facing messages. These strings are part of the API contract and
// must not be reworded.
const (
	MsgUserLimitReached    = "Can't invite a new user, limit is reached"
	MsgCollabLimitReached  = "Can't invite a new collaborator, limit is reached"
	MsgProjectLimitReached = "Can't create a new project, limit is reached"
	MsgNoPaymentMethod     = "No valid payment method"
	MsgTooManyUsers        = "Too many users to switch to this plan"
	MsgNoSubscription      = "No valid subscription to cancel. Try changing your plan"
	MsgTermsNotAccepted    = "Terms and conditions not accepted"
	MsgCollaboratorDenied  = "Collaborators can't access this"
	MsgUserExists          = "User Exists"
)

// Error is an operation failure with a client-facing message
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a billing error
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsKind reports whether err is a billing error of the given kind
func IsKind(err error, kind Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}

// KindOf returns the kind of a billing error, or an empty kind
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
