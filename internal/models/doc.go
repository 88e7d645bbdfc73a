// Package models defines the core domain models for settleup.
//
// # Identities
//
// Registered users are referenced by ID strings. A split may also name
// people who have no account (ExternalParticipant); those shares are
// recorded on the transaction but never take part in balance netting,
// settlements or notifications.
//
// # Money
//
// All amounts are decimal.Decimal values in a single currency. Two amounts
// closer than Deadband (0.01) are treated as equal, and a balance whose
// magnitude is at most Deadband is treated as settled.
//
// # Derived data
//
// Balance and the summary fields on Group are caches. They can always be
// rebuilt from the transaction and settlement log and are never used as
// input to the ledger's own calculations.
//
// # Design Principles
//
// 1. **Explicit variants**: a participant is either a user ID or a free-text name, never both
// 2. **Avoid circular references**: Use ID strings instead of pointers for relationships
// 3. **Unix timestamps**: CreatedAt/UpdatedAt fields are seconds since epoch
package models
