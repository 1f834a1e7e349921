// Package aggregates implements the progress write path on top of gorm.
//
// A progression event (quiz attempt, course update, manual unlock, ledger
// reconcile) is one transaction: the user row is read for update, ledger and
// unlock rows rely on unique indexes, and the user row is written back with a
// version compare-and-set. Retryable failures rerun the whole transaction.
package aggregates
