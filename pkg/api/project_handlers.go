package api

import (
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/middleware"
)

// listProjects handles GET /project
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	projects, err := s.orchestrator.Projects(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, newProjectResponse(p))
	}
	httputil.WriteSuccess(w, resp)
}

// createProject handles POST /project. A quota rejection here returns 422
// with the project limit message.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	project, err := s.orchestrator.CreateProject(r.Context(), principal, req.Name, nil)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newProjectResponse(project))
}

// uploadProject handles PUT /project/{uid}. The body is the raw project
// payload; the new stored size is billed, never blocked.
func (s *Server) uploadProject(w http.ResponseWriter, r *http.Request) {
	uid, ok := httputil.ParsePathStringOrError(w, r, "uid")
	if !ok {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	project, err := s.orchestrator.UploadProject(r.Context(), principal, uid, r.Body)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newProjectResponse(project))
}
