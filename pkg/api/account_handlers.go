package api

import (
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/middleware"
)

// signup handles POST /user
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	result, err := s.orchestrator.Signup(r.Context(), billing.SignupRequest{
		Email:         req.Email,
		Name:          req.Name,
		TeamName:      req.TeamName,
		InviteUID:     req.InviteID,
		RecoveryKey:   req.RecoveryKey,
		AcceptedTerms: req.AcceptedTerms,
	})
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	httputil.WriteSuccess(w, signupResponse{
		UserID:          result.UserID,
		TeamID:          result.TeamID,
		Token:           result.Token,
		VerificationUID: result.VerificationUID,
	})
}

// verifyEmail handles GET /user/verify_email/{uid}
func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	uid, ok := httputil.ParsePathStringOrError(w, r, "uid")
	if !ok {
		return
	}
	if err := s.orchestrator.VerifyEmail(r.Context(), uid); err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Email verified")
}

// getProfile handles GET /user
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	profile, err := s.orchestrator.Profile(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newMemberResponse(profile))
}
