// Package providers contains dependency injection providers for the GiggleGlide engine.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/giggleglide/giggleglide-engine/internal/config"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/validation"
)

// ProvideConfig provides the engine configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting GiggleGlide engine",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Storage.DBPath,
		"api_base_url", cfg.API.BaseURL,
	)

	return log, nil
}

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
