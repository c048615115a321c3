package admin

import (
	"context"

	"go-regula/internal/features/scheduler"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/features/user"
	"go-regula/internal/features/webhook"
	"go-regula/internal/features/workflow"

	"golang.org/x/sync/errgroup"
)

// RecentDeliveryLimit is the size of the admin delivery listing.
const RecentDeliveryLimit = 50

type Stats struct {
	Users       int                   `json:"users"`
	Workflows   int                   `json:"workflows"`
	SLABreaches int                   `json:"slaBreaches"`
	Webhooks    webhook.Stats         `json:"webhooks"`
	Jobs        []scheduler.JobStatus `json:"jobs,omitempty"`
}

type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	RecentDeliveries(ctx context.Context) ([]webhook.RecentDelivery, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	SearchLogs(ctx context.Context, q systemlog.Query) (systemlog.Page, error)
}

type AdminServiceImpl struct {
	Users     user.UserService
	Workflows workflow.WorkflowRepository
	Webhooks  webhook.WebhookService
	Logs      systemlog.SystemLogService
	Scheduler *scheduler.Scheduler
}

func NewAdminService(
	users user.UserService,
	workflows workflow.WorkflowRepository,
	webhooks webhook.WebhookService,
	logs systemlog.SystemLogService,
	sched *scheduler.Scheduler,
) AdminService {
	return &AdminServiceImpl{
		Users:     users,
		Workflows: workflows,
		Webhooks:  webhooks,
		Logs:      logs,
		Scheduler: sched,
	}
}

func (s *AdminServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Users, err = s.Users.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.Workflows, err = s.Workflows.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.SLABreaches, err = s.Workflows.CountEscalated(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.Webhooks, err = s.Webhooks.Stats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.Scheduler != nil {
		st.Jobs = s.Scheduler.Status()
	}
	return &st, nil
}

func (s *AdminServiceImpl) RecentDeliveries(ctx context.Context) ([]webhook.RecentDelivery, error) {
	return s.Webhooks.ListRecent(ctx, RecentDeliveryLimit)
}

func (s *AdminServiceImpl) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.Users.ListUsers(ctx)
}

func (s *AdminServiceImpl) SearchLogs(ctx context.Context, q systemlog.Query) (systemlog.Page, error) {
	return s.Logs.Search(ctx, q.Normalize())
}
