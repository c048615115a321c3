package system

import (
	"context"
	"time"

	"go-regula/internal/database"
	"go-regula/internal/features/notification"
	"go-regula/internal/features/scheduler"
	"go-regula/internal/features/systemlog"

	"github.com/gofiber/fiber/v2"
)

type HealthReport struct {
	Status          string                `json:"status"`
	Database        string                `json:"database"`
	SchedulerActive bool                  `json:"schedulerActive"`
	Jobs            []scheduler.JobStatus `json:"jobs"`
	DroppedLogs     int64                 `json:"droppedLogs"`
	DroppedNotices  int64                 `json:"droppedNotifications"`
	FailedNotices   int64                 `json:"failedNotifications"`
	LiveSubscribers int                   `json:"liveSubscribers"`
}

type HealthController struct {
	DB         *database.Database
	Scheduler  *scheduler.Scheduler
	Dispatcher *notification.Dispatcher
	Writer     *systemlog.Writer
	Hub        *systemlog.Hub
}

func NewHealthController(
	db *database.Database,
	sched *scheduler.Scheduler,
	dispatcher *notification.Dispatcher,
	writer *systemlog.Writer,
	hub *systemlog.Hub,
) *HealthController {
	return &HealthController{DB: db, Scheduler: sched, Dispatcher: dispatcher, Writer: writer, Hub: hub}
}

// Health godoc
// @Summary      Health check
// @Description  Database reachability, scheduler state and best-effort pipeline counters
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthReport
// @Failure      503  {object}  HealthReport
// @Router       /api/health [get]
func (h *HealthController) Health(c *fiber.Ctx) error {
	report := HealthReport{Status: "ok", Database: "ok"}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.DB.DB.PingContext(ctx); err != nil {
		report.Status = "degraded"
		report.Database = err.Error()
	}

	if h.Scheduler != nil {
		report.SchedulerActive = h.Scheduler.Active()
		report.Jobs = h.Scheduler.Status()
	}
	if h.Dispatcher != nil {
		report.DroppedNotices = h.Dispatcher.Dropped()
		report.FailedNotices = h.Dispatcher.Failed()
	}
	if h.Writer != nil {
		report.DroppedLogs = h.Writer.Dropped()
	}
	if h.Hub != nil {
		report.LiveSubscribers = h.Hub.Subscribers()
	}

	if report.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}
