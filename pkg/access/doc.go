// Package access implements the role capability table that gates every
// team-scoped operation before any quota decision is made.
package access
