package fund

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fundcustody/pkg/config"
	"fundcustody/pkg/task"
)

const TypeRefreshAssets = "fund:refresh_assets"

type RefreshAssetsPayload struct {
	FundID string `json:"fund_id"`
}

// NewRefreshAssetsTask builds the queued task that revalues a fund's NAV.
func NewRefreshAssetsTask(fundID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshAssetsPayload{FundID: fundID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRefreshAssets, payload), nil
}

var TaskModule = fx.Module("task.fund",
	fx.Invoke(registerTaskHandlers, registerRefreshScheduler),
)

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(TypeRefreshAssets, svc.HandleRefreshAssetsTask)
}

func (s *Service) HandleRefreshAssetsTask(ctx context.Context, t *asynq.Task) error {
	var payload RefreshAssetsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("fund_id", payload.FundID),
	)
	zapLog.Info("start assets refresh task")

	if err := s.RefreshAssets(ctx, payload.FundID); err != nil {
		zapLog.Error("assets refresh failed", zap.Error(err))
		return err
	}

	return nil
}

// registerRefreshScheduler enqueues a refresh task for every registered fund
// at the configured interval. A zero interval disables scheduling; operators
// can still trigger refreshes through the API.
func registerRefreshScheduler(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB, enqueuer task.Enqueuer) {
	interval := cfg.Fund.RefreshInterval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go refreshLoop(ctx, interval, db, enqueuer)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func refreshLoop(ctx context.Context, interval time.Duration, db *gorm.DB, enqueuer task.Enqueuer) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var fundIDs []string
		if err := db.WithContext(ctx).Model(&Fund{}).Pluck("id", &fundIDs).Error; err != nil {
			zap.L().Error("failed to list funds for assets refresh", zap.Error(err))
			continue
		}

		for _, fundID := range fundIDs {
			t, err := NewRefreshAssetsTask(fundID)
			if err != nil {
				continue
			}
			if _, err := enqueuer.Enqueue(ctx, t, asynq.Queue("low")); err != nil {
				zap.L().Error("failed to enqueue assets refresh",
					zap.String("fund_id", fundID), zap.Error(err))
			}
		}
	}
}
