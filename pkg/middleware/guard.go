package middleware

import (
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/httputil"
)

// BlockCollaborators rejects collaborator principals before the handler
// runs. The orchestrator enforces access per operation as well; this guard
// exists so collaborator traffic is cut off at the edge with the contract
// message and status.
func BlockCollaborators(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Authentication credentials were not provided")
			return
		}
		if principal.Role == access.RoleCollaborator {
			httputil.WriteUnauthorized(w, billing.MsgCollaboratorDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}
