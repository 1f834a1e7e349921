// Package aggregates declares the progress write boundary and its error
// vocabulary, free of storage and transport types.
//
// After every committed write the XP ledger sums to the user's XP, the level
// never drops, and each achievement is unlocked at most once per user.
package aggregates
