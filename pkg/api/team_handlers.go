package api

import (
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/middleware"
)

// getTeam handles GET /team
func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	info, err := s.orchestrator.Team(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newTeamResponse(info))
}

// inviteUser handles POST /user/invite. A quota rejection here returns 401
// with the user limit message.
func (s *Server) inviteUser(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	invite, err := s.orchestrator.InviteUser(r.Context(), principal, req.Email)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnauthorized)
		return
	}
	httputil.WriteSuccess(w, newInviteResponse(invite))
}

// inviteCollaborator handles POST /user/invite/collaborator
func (s *Server) inviteCollaborator(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	invite, err := s.orchestrator.InviteCollaborator(r.Context(), principal, req.Email)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnauthorized)
		return
	}
	httputil.WriteSuccess(w, newInviteResponse(invite))
}
