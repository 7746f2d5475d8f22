// Package billing models the money side of the rental operation.
//
// It is responsible for:
//   - Generating one Debt per driver, vehicle and rental day
//   - Moving debts through the manual-receipt approval cycle or an online
//     gateway checkout
//   - Recording every amount received as an immutable Payment ledger entry
//   - Handling driver-initiated SettlementRequests that are not tied to a
//     single generated debt
//
// Key aggregates:
//   - Debt: one day of rent owed, with its settlement state machine
//   - SettlementRequest: a driver payment claim awaiting admin review
//
// Payment is an append-only entity; corrections go through the debts it
// settles, never through edits to the ledger.
//
// The PaymentGateway port abstracts the hosted-checkout provider; the
// infrastructure layer supplies the Wompi adapter.
package billing
