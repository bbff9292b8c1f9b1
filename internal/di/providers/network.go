package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/giggleglide/giggleglide-engine/internal/config"
	"github.com/giggleglide/giggleglide-engine/internal/connectivity"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/remote"
)

// connectivityPollInterval is how often the prober re-checks network state
// between host-pushed updates.
const connectivityPollInterval = 30 * time.Second

// ConnectivityHandle wraps the monitor with its context for lifecycle management.
type ConnectivityHandle struct {
	*connectivity.Monitor
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ConnectivityHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Monitor.Shutdown(ctx)
}

// ProvideConnectivityMonitor provides the network state monitor.
func ProvideConnectivityMonitor(i do.Injector) (*ConnectivityHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	broadcaster := do.MustInvoke[*BroadcasterHandle](i)

	prober := connectivity.NewHTTPProber(cfg.Network.ProbeURL, nil)
	monitor := connectivity.NewMonitor(prober, broadcaster.Broadcaster, log, connectivity.Options{
		PollInterval: connectivityPollInterval,
		ProbeTimeout: cfg.Network.ProbeTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)

	log.Info("Connectivity monitor started", "probe_url", cfg.Network.ProbeURL)

	return &ConnectivityHandle{
		Monitor: monitor,
		cancel:  cancel,
	}, nil
}

// ProvideRemoteClient provides the joke API client.
func ProvideRemoteClient(i do.Injector) (*remote.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return remote.New(remote.Options{
		BaseURL:           cfg.API.BaseURL,
		FetchTimeout:      cfg.API.FetchTimeout,
		SubmitTimeout:     cfg.API.SubmitTimeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	}, log), nil
}
