package api

import (
	"io"
	"net/http"

	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/middleware"
)

// getPlan handles GET /billing/plan
func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	plan, err := s.orchestrator.Plan(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newPlanResponse(plan))
}

// listInvoices handles GET /billing/invoices
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	invoices, err := s.orchestrator.Invoices(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if invoices == nil {
		invoices = []entitlement.Invoice{}
	}
	httputil.WriteSuccess(w, invoicesResponse{Invoices: invoices})
}

// getLimits handles GET /billing/limits
func (s *Server) getLimits(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	limits, err := s.orchestrator.Limits(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newLimitsResponse(limits))
}

// getAddOnPrices handles GET /billing/addon-prices
func (s *Server) getAddOnPrices(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	price, err := s.orchestrator.AddOnPrices(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, addOnPriceResponse{UserPriceCents: price})
}

// switchTier handles POST /billing/plan
func (s *Server) switchTier(w http.ResponseWriter, r *http.Request) {
	var req switchTierRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.TierID, "tier_id") {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	plan, err := s.orchestrator.SwitchTier(r.Context(), principal, req.TierID)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, switchTierResponse{TierID: plan.TierID})
}

// purchaseAddOn handles POST /billing/addon
func (s *Server) purchaseAddOn(w http.ResponseWriter, r *http.Request) {
	var req purchaseAddOnRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, int64(req.Users), "users") {
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	ent, err := s.orchestrator.PurchaseAddOn(r.Context(), principal, req.Users)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, entitlementResponse{
		TierID:     ent.TierID,
		Status:     string(ent.Status),
		ExtraUsers: ent.ExtraUsers,
	})
}

// cancelSubscription handles POST /billing/cancel
func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	plan, err := s.orchestrator.Cancel(r.Context(), principal)
	if err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteSuccess(w, newPlanResponse(plan))
}

// handleWebhook handles POST /billing/webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read payload")
		return
	}
	signature := r.Header.Get("X-Signature")
	if signature == "" {
		httputil.WriteBadRequest(w, "missing signature")
		return
	}

	if err := s.orchestrator.HandleCheckoutEvent(r.Context(), payload, signature); err != nil {
		writeOperationError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "ok")
}
