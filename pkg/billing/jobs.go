package billing

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vaultgate/vaultgate/pkg/blobstore"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/observability"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
)

// Jobs runs the periodic maintenance work: sweeping expired email
// verifications, downgrading expired trials to the free tier,
// reconciling recorded project sizes against the blob store, and
// refreshing the business stats gauges.
type Jobs struct {
	teams   teams.Store
	ents    entitlement.Store
	blobs   blobstore.Store
	metrics *observability.Metrics
	log     *logrus.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewJobs creates the background job runner
func NewJobs(teamStore teams.Store, entStore entitlement.Store, blobs blobstore.Store, metrics *observability.Metrics, log *logrus.Logger) *Jobs {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Jobs{
		teams:   teamStore,
		ents:    entStore,
		blobs:   blobs,
		metrics: metrics,
		log:     log,
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Start registers the schedules and starts the cron runner
func (j *Jobs) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.SweepVerifications); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("*/10 * * * *", j.DowngradeExpiredTrials); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("*/5 * * * *", j.RefreshStats); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@daily", j.SweepStorage); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("background jobs started")
	return nil
}

// Stop stops the cron runner and waits for running jobs
func (j *Jobs) Stop(ctx context.Context) error {
	stopped := j.cron.Stop()
	select {
	case <-stopped.Done():
		j.log.Info("background jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepVerifications deletes expired email verification tokens
func (j *Jobs) SweepVerifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := j.teams.DeleteExpiredVerifications(ctx, j.now())
	if err != nil {
		j.log.WithError(err).Error("verification sweep failed")
		return
	}
	if swept > 0 {
		j.log.WithField("swept", swept).Info("expired verifications removed")
	}
}

// DowngradeExpiredTrials moves teams whose trial has ended onto the free
// tier. Add-on seats are dropped with the trial.
func (j *Jobs) DowngradeExpiredTrials() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := j.ents.ListExpiredTrials(ctx, j.now())
	if err != nil {
		j.log.WithError(err).Error("expired trial listing failed")
		return
	}
	for _, ent := range expired {
		ent.TierID = tiers.CommunityTierID
		ent.ExtraUsers = 0
		if err := j.ents.Update(ctx, ent); err != nil {
			j.log.WithError(err).WithField("team_id", ent.TeamID).Error("trial downgrade failed")
			continue
		}
		j.log.WithField("team_id", ent.TeamID).Info("trial expired, team downgraded to free tier")
	}
}

// SweepStorage reconciles recorded project sizes against the blob store.
// Sizes can drift when an upload is committed but the size write fails.
func (j *Jobs) SweepStorage() {
	if j.blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	projects, err := j.teams.ListAllProjects(ctx)
	if err != nil {
		j.log.WithError(err).Error("storage sweep listing failed")
		return
	}
	var reconciled int
	for _, project := range projects {
		size, err := j.blobs.Size(ctx, project.UID)
		if errors.Is(err, blobstore.ErrNotFound) {
			// Projects created before their first upload have no blob.
			continue
		}
		if err != nil {
			j.log.WithError(err).WithField("project_uid", project.UID).Error("blob stat failed")
			continue
		}
		if size == project.SizeBytes {
			continue
		}
		if err := j.teams.SetProjectSize(ctx, project.UID, size); err != nil {
			j.log.WithError(err).WithField("project_uid", project.UID).Error("project size update failed")
			continue
		}
		reconciled++
	}
	if reconciled > 0 {
		j.log.WithField("reconciled", reconciled).Info("project sizes reconciled with blob store")
	}
}

// RefreshStats recomputes the business gauges
func (j *Jobs) RefreshStats() {
	if j.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	teamsTotal, err := j.teams.CountTeams(ctx)
	if err != nil {
		j.log.WithError(err).Error("team count failed")
		return
	}
	projectsTotal, err := j.teams.CountProjects(ctx)
	if err != nil {
		j.log.WithError(err).Error("project count failed")
		return
	}
	j.metrics.TeamsTotal.Set(float64(teamsTotal))
	j.metrics.ProjectsTotal.Set(float64(projectsTotal))
}
