package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
)

// ProfileRepository stores the owner's profile, which remembers the gateway customer id.
type ProfileRepository interface {
	GetProfile(ctx context.Context, owner string) (core.Profile, error)
	UpsertProfile(ctx context.Context, p core.Profile) error
}

// CheckoutRequest buys a plan. Amount must equal the plan price.
type CheckoutRequest struct {
	Plan        string
	Amount      core.Money
	Description string
	BillingType string
	Holder      Holder
	Card        *CreditCard
	CardHolder  *CardHolderInfo
	RemoteIP    string
}

type CheckoutResult struct {
	CustomerID string       `json:"customerId"`
	Plan       Plan         `json:"plan"`
	Charge     ChargeResult `json:"charge"`
}

type Orchestrator struct {
	gateway  Gateway
	profiles ProfileRepository
	catalog  *Catalog
	events   events.Publisher
	now      func() time.Time
}

func NewOrchestrator(gateway Gateway, profiles ProfileRepository, catalog *Catalog, publisher events.Publisher) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{gateway: gateway, profiles: profiles, catalog: catalog, events: publisher, now: time.Now}
}

// Catalog exposes the plans on sale.
func (o *Orchestrator) Catalog() *Catalog {
	return o.catalog
}

// EnsureCustomer returns the owner's gateway customer id. The id stored on the
// profile wins; otherwise the gateway is searched by tax id before a customer
// is created, so the gateway never holds two customers for one person.
func (o *Orchestrator) EnsureCustomer(ctx context.Context, owner string, h Holder) (string, error) {
	profile, err := o.profiles.GetProfile(ctx, owner)
	switch {
	case errors.Is(err, core.ErrNotFound):
		profile = core.Profile{Owner: owner}
	case err != nil:
		return "", fmt.Errorf("get profile: %w", err)
	case profile.GatewayCustomerID != "":
		return profile.GatewayCustomerID, nil
	}

	h.Name = strings.TrimSpace(h.Name)
	h.Email = strings.TrimSpace(h.Email)
	h.TaxID = DigitsOnly(h.TaxID)
	if h.Name == "" || h.Email == "" || h.TaxID == "" {
		return "", fmt.Errorf("name, email and tax id are required: %w", core.ErrInvalidName)
	}

	customerID, found, err := o.gateway.SearchCustomerByTaxID(ctx, h.TaxID)
	if err != nil {
		return "", err
	}
	if !found {
		if customerID, err = o.gateway.CreateCustomer(ctx, h); err != nil {
			return "", err
		}
		slog.InfoContext(ctx, "Gateway customer created",
			applog.FieldOwner, owner,
			applog.FieldCustomerID, customerID)
	}

	profile.FullName = h.Name
	profile.TaxID = h.TaxID
	profile.GatewayCustomerID = customerID
	profile.UpdatedAt = o.now().UTC()
	if err := o.profiles.UpsertProfile(ctx, profile); err != nil {
		return "", fmt.Errorf("save profile: %w", err)
	}
	if err := o.events.Publish(ctx, events.New(events.ProfileChanged, owner, owner)); err != nil {
		slog.WarnContext(ctx, "Failed to publish profile event", applog.FieldError, err)
	}
	return customerID, nil
}

// Charge creates a subscription when a cycle is set or the card is billed,
// else a one-off payment. It is never retried.
func (o *Orchestrator) Charge(ctx context.Context, r ChargeRequest) (ChargeResult, error) {
	if r.Amount.Cents <= 0 {
		return ChargeResult{}, core.ErrInvalidAmount
	}
	if strings.TrimSpace(r.CustomerID) == "" {
		return ChargeResult{}, fmt.Errorf("customer id is required: %w", core.ErrNotFound)
	}
	if !ValidCycle(r.Cycle) {
		return ChargeResult{}, fmt.Errorf("unknown cycle %q: %w", r.Cycle, core.ErrInvalidName)
	}

	var (
		res ChargeResult
		err error
	)
	if r.IsSubscription() {
		res, err = o.gateway.CreateSubscription(ctx, r)
	} else {
		res, err = o.gateway.CreatePayment(ctx, r)
	}
	if err != nil {
		return ChargeResult{}, err
	}

	slog.InfoContext(ctx, "Charge created",
		applog.FieldCustomerID, r.CustomerID,
		applog.FieldAmountCents, r.Amount.Cents,
		"charge_id", res.ID,
		"subscription", res.Subscription)
	return res, nil
}

// Checkout resolves the plan, ensures the customer and charges the plan price.
func (o *Orchestrator) Checkout(ctx context.Context, owner string, req CheckoutRequest) (CheckoutResult, error) {
	plan, ok := o.catalog.Lookup(req.Plan)
	if !ok {
		return CheckoutResult{}, fmt.Errorf("plan %q: %w", req.Plan, core.ErrNotFound)
	}
	if req.Amount != plan.Price {
		return CheckoutResult{}, fmt.Errorf("amount %s does not match plan price %s: %w",
			req.Amount, plan.Price, core.ErrInvalidAmount)
	}

	customerID, err := o.EnsureCustomer(ctx, owner, req.Holder)
	if err != nil {
		return CheckoutResult{}, err
	}

	description := req.Description
	if description == "" {
		description = plan.Name
	}
	charge, err := o.Charge(ctx, ChargeRequest{
		CustomerID:  customerID,
		Amount:      plan.Price,
		BillingType: req.BillingType,
		Cycle:       plan.Cycle,
		Description: description,
		Card:        req.Card,
		CardHolder:  req.CardHolder,
		RemoteIP:    req.RemoteIP,
	})
	if err != nil {
		slog.WarnContext(ctx, "Checkout failed",
			applog.FieldOwner, owner,
			applog.FieldPlan, plan.ID,
			applog.FieldError, err)
		return CheckoutResult{}, err
	}

	slog.InfoContext(ctx, "Checkout completed",
		applog.FieldOwner, owner,
		applog.FieldPlan, plan.ID,
		applog.FieldOperation, applog.OpCharge)
	return CheckoutResult{CustomerID: customerID, Plan: plan, Charge: charge}, nil
}
