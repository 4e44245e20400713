// Package entitlement tracks which billing tier each team is entitled to,
// the lifecycle of its subscription, and purchased add-ons. It also defines
// the payment gateway client used to check payment methods, list invoices
// and verify checkout webhooks.
package entitlement
