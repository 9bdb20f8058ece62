package background

import (
	"testing"

	"glowdesk/internal/jobs"

	"github.com/stretchr/testify/assert"
)

func TestJobScheduler_RegistersLifecycleJobs(t *testing.T) {
	scheduler := NewJobScheduler(jobs.NewExpiryAlertService(nil, nil), jobs.NewTrialSweepService(nil, nil))
	defer func() {
		assert.NoError(t, scheduler.Stop())
	}()

	status := scheduler.GetJobStatus()
	assert.Equal(t, 2, status["total_jobs"])
	assert.ElementsMatch(t, []string{"expiry-alerts", "trial-sweep"}, status["jobs"])
}
