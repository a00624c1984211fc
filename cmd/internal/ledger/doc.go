// Package ledger owns ledgerd's accounts and balances.
//
// All balance mutation goes through Transfer, which applies the debit and the
// credit as one atomic step: no observer ever sees one leg without the other,
// and the sum of all balances is invariant across any number of transfers.
// Balances are decimal and never negative; an insufficient-funds transfer is
// rejected before any mutation.
//
// Two Store implementations exist: an in-memory store (per-account mutexes,
// locked in ascending id order to prevent deadlock) and a Postgres store
// (row locks acquired in id order inside a single transaction).
package ledger
