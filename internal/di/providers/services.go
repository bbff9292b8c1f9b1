package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/giggleglide/giggleglide-engine/internal/config"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/remote"
	"github.com/giggleglide/giggleglide-engine/internal/scheduler"
	"github.com/giggleglide/giggleglide-engine/internal/service"
	"github.com/giggleglide/giggleglide-engine/internal/syncqueue"
	"github.com/giggleglide/giggleglide-engine/internal/validation"
)

// ProvideSyncQueue provides the sync queue service.
func ProvideSyncQueue(i do.Injector) (*syncqueue.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	connHandle := do.MustInvoke[*ConnectivityHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	broadcaster := do.MustInvoke[*BroadcasterHandle](i)

	return syncqueue.NewService(storeHandle.Store, client, connHandle.Monitor, broadcaster.Broadcaster, log, syncqueue.Options{
		MaxAttempts: cfg.Sync.MaxAttempts,
	}), nil
}

// SchedulerHandle wraps the background sync scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.Scheduler.Stop()
	return nil
}

// ProvideScheduler provides the background sync scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	queue := do.MustInvoke[*syncqueue.Service](i)
	connHandle := do.MustInvoke[*ConnectivityHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	s := scheduler.New(queue, connHandle.Monitor, storeHandle.Store, log, scheduler.Options{
		Interval: cfg.Sync.Interval,
	})
	if err := s.Start(); err != nil {
		return nil, err
	}

	log.Info("Background sync scheduler started", "interval", cfg.Sync.Interval)

	return &SchedulerHandle{Scheduler: s}, nil
}

// DeliveryServiceHandle wraps the delivery facade with shutdown capability.
type DeliveryServiceHandle struct {
	*service.DeliveryService
}

// Shutdown implements do.Shutdownable.
func (h *DeliveryServiceHandle) Shutdown() error {
	return h.DeliveryService.Close()
}

// ProvideDeliveryService provides the initialized joke delivery facade.
func ProvideDeliveryService(i do.Injector) (*DeliveryServiceHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	queue := do.MustInvoke[*syncqueue.Service](i)
	connHandle := do.MustInvoke[*ConnectivityHandle](i)
	broadcaster := do.MustInvoke[*BroadcasterHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	svc := service.NewDeliveryService(storeHandle.Store, client, queue, connHandle.Monitor, broadcaster.Broadcaster, validator, log)
	if err := svc.Initialize(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Delivery service ready")

	return &DeliveryServiceHandle{DeliveryService: svc}, nil
}
