// Package tiers holds the static pricing tier catalog. Tiers bound how many
// users, projects, collaborators and storage a team may consume.
package tiers
