package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

type planLockStore interface {
	ListPlansByStatus(ctx context.Context, status enums.LoadPlanStatus) ([]models.ContainerLoadPlan, error)
	ReleaseShipmentLocks(ctx context.Context, planID uuid.UUID) (int64, error)
}

// PlanLockReconcileJobParams configure the shipment lock reconciler.
type PlanLockReconcileJobParams struct {
	Logger *logger.Logger
	Store  planLockStore
}

// NewPlanLockReconcileJob builds the job that releases shipment locks left
// behind by cancelled load plans. Cancellation normally unlocks its own
// shipments; this sweep catches rows orphaned by a crash between the
// status flip and the unlock.
func NewPlanLockReconcileJob(params PlanLockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("plan store required")
	}
	return &planLockReconcileJob{
		logg:  params.Logger,
		store: params.Store,
	}, nil
}

type planLockReconcileJob struct {
	logg  *logger.Logger
	store planLockStore
}

func (j *planLockReconcileJob) Name() string { return "plan-lock-reconcile" }

func (j *planLockReconcileJob) Run(ctx context.Context) error {
	plans, err := j.store.ListPlansByStatus(ctx, enums.LoadPlanStatusCancelled)
	if err != nil {
		return fmt.Errorf("query cancelled plans: %w", err)
	}

	var errs []error
	released := int64(0)
	for _, plan := range plans {
		count, err := j.store.ReleaseShipmentLocks(ctx, plan.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("release locks for plan %s: %w", plan.ID, err))
			continue
		}
		if count > 0 {
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"plan_id": plan.ID.String(),
				"count":   count,
			})
			j.logg.Warn(logCtx, "released shipment locks orphaned by cancelled plan")
			released += count
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"plans":    len(plans),
		"released": released,
	})
	j.logg.Info(logCtx, "plan lock reconcile complete")
	return multierr.Combine(errs...)
}
