// Package di provides dependency injection configuration for the GiggleGlide engine.
package di

import (
	"github.com/samber/do/v2"

	"github.com/giggleglide/giggleglide-engine/internal/config"
	"github.com/giggleglide/giggleglide-engine/internal/di/providers"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/remote"
	"github.com/giggleglide/giggleglide-engine/internal/syncqueue"
	"github.com/giggleglide/giggleglide-engine/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Events and storage
	do.Provide(injector, providers.ProvideBroadcaster)
	do.Provide(injector, providers.ProvideStore)

	// Network layer
	do.Provide(injector, providers.ProvideConnectivityMonitor)
	do.Provide(injector, providers.ProvideRemoteClient)

	// Sync layer
	do.Provide(injector, providers.ProvideSyncQueue)
	do.Provide(injector, providers.ProvideScheduler)

	// Delivery facade
	do.Provide(injector, providers.ProvideDeliveryService)

	return injector
}

// Bootstrap initializes all services in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.BroadcasterHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ConnectivityHandle](injector)
	_ = do.MustInvoke[*remote.Client](injector)
	_ = do.MustInvoke[*syncqueue.Service](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)

	_, err := do.Invoke[*providers.DeliveryServiceHandle](injector)
	return err
}
