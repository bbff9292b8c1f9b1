package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/giggleglide/giggleglide-engine/internal/config"
	"github.com/giggleglide/giggleglide-engine/internal/events"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/store/sqlite"
)

// BroadcasterHandle wraps the event broadcaster with its context for
// lifecycle management.
type BroadcasterHandle struct {
	*events.Broadcaster
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BroadcasterHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Broadcaster.Shutdown(ctx)
}

// ProvideBroadcaster provides the engine event broadcaster.
func ProvideBroadcaster(i do.Injector) (*BroadcasterHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	broadcaster := events.NewBroadcaster(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go broadcaster.Start(ctx)

	log.Info("Event broadcaster started")

	return &BroadcasterHandle{
		Broadcaster: broadcaster,
		cancel:      cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Storage.DBPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Local record store initialized", "path", cfg.Storage.DBPath)

	return &StoreHandle{Store: db}, nil
}
