package http

import (
	"errors"
	"fmt"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
	"saldo/internal/payment"
)

type profileRequest struct {
	FullName string `json:"fullName"`
	TaxID    string `json:"taxId"`
}

type checkoutRequest struct {
	Plan        string                  `json:"plan"`
	Amount      core.Money              `json:"amount"`
	Description string                  `json:"description"`
	BillingType string                  `json:"billingType"`
	Holder      payment.Holder          `json:"holder"`
	Card        *payment.CreditCard     `json:"card"`
	CardHolder  *payment.CardHolderInfo `json:"cardHolder"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	profile, err := s.deps.Profiles.GetProfile(r.Context(), owner)
	if errors.Is(err, core.ErrNotFound) {
		profile, err = core.Profile{Owner: owner}, nil
	}
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(profile).Write(w)
}

// handlePutProfile updates name and tax id. The stored gateway customer id is kept.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	owner := ownerFrom(r.Context())
	name := sanitizeInput(req.FullName)
	if name == "" {
		ErrorFor(r, fmt.Errorf("full name is required: %w", core.ErrInvalidName)).Write(w)
		return
	}

	profile, err := s.deps.Profiles.GetProfile(r.Context(), owner)
	switch {
	case errors.Is(err, core.ErrNotFound):
		profile = core.Profile{Owner: owner}
	case err != nil:
		ErrorFor(r, err).Write(w)
		return
	}
	profile.FullName = name
	profile.TaxID = payment.DigitsOnly(req.TaxID)
	profile.UpdatedAt = s.now().UTC()
	if err := s.deps.Profiles.UpsertProfile(r.Context(), profile); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Profile updated", applog.FieldOperation, applog.OpUpsert)
	s.publish(r.Context(), events.New(events.ProfileChanged, owner, owner))
	NewJSONResponse().Body(profile).Write(w)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if s.deps.Payments == nil {
		ErrorResponse(http.StatusServiceUnavailable, "payments are not configured").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"plans": s.deps.Payments.Catalog().Plans()}).Write(w)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.deps.Payments == nil {
		ErrorResponse(http.StatusServiceUnavailable, "payments are not configured").Write(w)
		return
	}
	var req checkoutRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	result, err := s.deps.Payments.Checkout(r.Context(), ownerFrom(r.Context()), payment.CheckoutRequest{
		Plan:        req.Plan,
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		BillingType: req.BillingType,
		Holder:      req.Holder,
		Card:        req.Card,
		CardHolder:  req.CardHolder,
		RemoteIP:    s.ip.ClientIP(r),
	})
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(result).Write(w)
}
