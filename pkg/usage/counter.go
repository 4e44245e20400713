package usage

import "context"

// Counts is a point-in-time snapshot of a team's resource consumption.
// Users covers owners and members; collaborators are counted separately
// because they are limited separately.
type Counts struct {
	Users         int
	Collaborators int
	Projects      int
	StorageBytes  int64

	// Pending invites reserve headroom so that two outstanding invites
	// cannot both land in the last remaining seat.
	PendingUserInvites         int
	PendingCollaboratorInvites int
}

// CommittedAndPendingUsers returns seats consumed by members plus
// outstanding member invites.
func (c Counts) CommittedAndPendingUsers() int {
	return c.Users + c.PendingUserInvites
}

// CommittedAndPendingCollaborators returns collaborator seats consumed plus
// outstanding collaborator invites.
func (c Counts) CommittedAndPendingCollaborators() int {
	return c.Collaborators + c.PendingCollaboratorInvites
}

// StorageMB returns consumed storage in whole megabytes, rounding up so a
// single byte over a boundary counts as the next megabyte.
func (c Counts) StorageMB() int64 {
	const mb = 1024 * 1024
	return (c.StorageBytes + mb - 1) / mb
}

// Counter takes usage snapshots for a team
type Counter interface {
	Snapshot(ctx context.Context, teamID int64) (Counts, error)
}
