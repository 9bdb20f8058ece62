package handlers

import (
	"net/http"

	"glowdesk/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobHandlers exposes the background scheduler's state to platform operators.
type JobHandlers struct {
	scheduler *background.JobScheduler
}

func NewJobHandlers(scheduler *background.JobScheduler) *JobHandlers {
	return &JobHandlers{scheduler: scheduler}
}

// JobStatus handles GET /admin/jobs
func (h *JobHandlers) JobStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}
