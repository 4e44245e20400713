package api

import (
	"errors"
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/tiers"
)

// listTiers handles GET /tier
func (s *Server) listTiers(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.All()
	resp := make([]tierResponse, 0, len(all))
	for _, t := range all {
		resp = append(resp, newTierResponse(t))
	}
	httputil.WriteSuccess(w, resp)
}

// getTier handles GET /tier/{id}
func (s *Server) getTier(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	tier, err := s.catalog.Get(id)
	if errors.Is(err, tiers.ErrTierNotFound) {
		httputil.WriteNotFoundError(w, "Tier not found")
		return
	}
	httputil.WriteSuccess(w, newTierResponse(tier))
}
