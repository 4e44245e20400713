// Package billing orchestrates every entitlement-changing operation. Each
// mutation runs as a unit under a per-team lock: snapshot usage, admit the
// action against the tier limits, then commit. Payment gateway checks run
// outside the lock and are re-validated inside it.
package billing
