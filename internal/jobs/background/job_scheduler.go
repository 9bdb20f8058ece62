package background

import (
	"context"
	"log"
	"time"

	"glowdesk/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the recurring membership lifecycle jobs.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	expiryAlerts  *jobs.ExpiryAlertService
	trialSweep    *jobs.TrialSweepService
	scheduledJobs map[string]gocron.Job
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(expiryAlerts *jobs.ExpiryAlertService, trialSweep *jobs.TrialSweepService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		expiryAlerts:  expiryAlerts,
		trialSweep:    trialSweep,
		scheduledJobs: make(map[string]gocron.Job),
	}

	js.registerJobs()
	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Expiry warnings - every 6 hours. The notified marker on the business
	// row keeps repeated runs from double-sending.
	alertsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(js.expiryAlerts.ScheduledExpiryCheck, context.Background()),
		gocron.WithName("membership-expiry-alerts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create expiry alerts job: %v", err)
	} else {
		js.scheduledJobs["expiry-alerts"] = alertsJob
	}

	// Bulk trial sweep - nightly. Catches lapsed memberships whose owners
	// never open the dashboard.
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.trialSweep.ScheduledTrialSweep, context.Background()),
		gocron.WithName("trial-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create trial sweep job: %v", err)
	} else {
		js.scheduledJobs["trial-sweep"] = sweepJob
	}

	log.Printf("Registered %d background jobs", len(js.scheduledJobs))
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	jobNames := make([]string, 0, len(js.scheduledJobs))
	for name := range js.scheduledJobs {
		jobNames = append(jobNames, name)
	}

	return map[string]interface{}{
		"total_jobs": len(js.scheduledJobs),
		"jobs":       jobNames,
	}
}
