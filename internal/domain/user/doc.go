// Package user implements the user store: lookup of a user's mobile number
// and atomic find-or-create.
//
// Every operation opens a span (db.getMobileNumberByUserId or
// db.getOrCreateAndCheckIsNew) under the caller's span and tags it with
// db.table, db.operation, db.user_id and db.result.
//
// Failures are split three ways:
//   - a missing user is LookupResult{Outcome: NotFound}, not an error
//   - backend failures wrap ErrStoreUnavailable and mark the span ERROR
//   - caller cancellation and deadlines are returned unwrapped
//
// isNew comes only from the outcome of the creating call. Nothing about
// "newness" is stored or re-read later.
package user
