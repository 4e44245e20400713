package api

import (
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/observability"
)

// writeOperationError maps a billing error to its HTTP status. Quota
// rejections do not map uniformly: invite endpoints return 401 while project
// creation returns 422, so the caller passes the status for that case.
// Clients depend on this split.
func writeOperationError(w http.ResponseWriter, r *http.Request, err error, limitStatus int) {
	switch billing.KindOf(err) {
	case billing.KindLimitReached:
		httputil.WriteMessage(w, limitStatus, err.Error())
	case billing.KindNoPaymentMethod, billing.KindTooManyUsers,
		billing.KindNoActiveSubscription, billing.KindNotEntitled:
		httputil.WriteUnprocessable(w, err.Error())
	case billing.KindTermsNotAccepted, billing.KindConflict:
		httputil.WriteConflict(w, err.Error())
	case billing.KindForbidden:
		httputil.WriteUnauthorized(w, err.Error())
	case billing.KindGatewayUnavailable:
		httputil.WriteServiceUnavailable(w, err.Error())
	case billing.KindNotFound:
		httputil.WriteNotFoundError(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
