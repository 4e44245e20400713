package usage

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresCounter computes usage snapshots from the entity tables with a
// single round trip.
type PostgresCounter struct {
	db *sql.DB
}

// NewPostgresCounter creates a counter backed by the given database
func NewPostgresCounter(db *sql.DB) *PostgresCounter {
	return &PostgresCounter{db: db}
}

const snapshotQuery = `
SELECT
	(SELECT COUNT(*) FROM profiles WHERE team_id = $1 AND role IN ('owner', 'member')),
	(SELECT COUNT(*) FROM profiles WHERE team_id = $1 AND role = 'collaborator'),
	(SELECT COUNT(*) FROM projects WHERE team_id = $1),
	(SELECT COALESCE(SUM(size_bytes), 0) FROM projects WHERE team_id = $1),
	(SELECT COUNT(*) FROM invites WHERE team_id = $1 AND accepted_at IS NULL AND role IN ('owner', 'member')),
	(SELECT COUNT(*) FROM invites WHERE team_id = $1 AND accepted_at IS NULL AND role = 'collaborator')`

// Snapshot returns the team's current resource consumption
func (c *PostgresCounter) Snapshot(ctx context.Context, teamID int64) (Counts, error) {
	var counts Counts
	err := c.db.QueryRowContext(ctx, snapshotQuery, teamID).Scan(
		&counts.Users,
		&counts.Collaborators,
		&counts.Projects,
		&counts.StorageBytes,
		&counts.PendingUserInvites,
		&counts.PendingCollaboratorInvites,
	)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to snapshot usage for team %d: %w", teamID, err)
	}
	return counts, nil
}
