// Package quota decides whether a team action fits inside its tier limits.
// The enforcer is pure: it judges a usage snapshot against the tier catalog
// and never performs I/O, so callers control locking and data freshness.
package quota
