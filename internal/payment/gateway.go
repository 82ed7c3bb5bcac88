// Package payment creates gateway customers and charges for plan checkouts.
package payment

import (
	"context"
	"strings"

	"saldo/internal/core"
)

const (
	BillingPIX        = "PIX"
	BillingBoleto     = "BOLETO"
	BillingCreditCard = "CREDIT_CARD"

	CycleMonthly    = "MONTHLY"
	CycleQuarterly  = "QUARTERLY"
	CycleSemiannual = "SEMIANNUAL"
	CycleYearly     = "YEARLY"
)

// Holder identifies the paying customer. Name, Email and TaxID are required.
type Holder struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	TaxID       string `json:"taxId"`
	Phone       string `json:"phone,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
}

// CreditCard is passed through to the gateway for transparent checkout.
type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

type CardHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone,omitempty"`
}

// ChargeRequest describes one payment or subscription. A Cycle or a credit
// card billing type makes it a subscription.
type ChargeRequest struct {
	CustomerID  string
	Amount      core.Money
	BillingType string
	Cycle       string
	Description string
	Card        *CreditCard
	CardHolder  *CardHolderInfo
	RemoteIP    string
}

// IsSubscription reports whether the request goes to the subscription endpoint.
func (r ChargeRequest) IsSubscription() bool {
	return r.Cycle != "" || r.BillingType == BillingCreditCard
}

// ChargeResult is the gateway's answer to a payment or subscription.
type ChargeResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	InvoiceURL   string `json:"invoiceUrl,omitempty"`
	Subscription bool   `json:"subscription"`
}

// Gateway is the remote payment provider.
type Gateway interface {
	SearchCustomerByTaxID(ctx context.Context, taxID string) (customerID string, found bool, err error)
	CreateCustomer(ctx context.Context, h Holder) (customerID string, err error)
	CreatePayment(ctx context.Context, r ChargeRequest) (ChargeResult, error)
	CreateSubscription(ctx context.Context, r ChargeRequest) (ChargeResult, error)
}

// DigitsOnly strips formatting from a CPF/CNPJ.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCycle reports whether c is empty or a cycle the gateway knows.
func ValidCycle(c string) bool {
	switch c {
	case "", CycleMonthly, CycleQuarterly, CycleSemiannual, CycleYearly:
		return true
	}
	return false
}
