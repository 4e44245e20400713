// Package usage computes live resource consumption for a team. Counts are
// always derived from the entity tables rather than maintained counters, so
// a snapshot is consistent with the rows that exist at the time it is taken.
package usage
