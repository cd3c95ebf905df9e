//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/avatarsync/avatarsync/internal/core/avatar"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelInfo)
}

func ProvideBus() bus.Bus {
	wire.Build(bus.New)
	return nil
}

func ProvideRegistry(logger *log.Logger) *avatar.Registry {
	wire.Build(wire.Bind(new(log.Log), new(*log.Logger)), avatar.NewRegistry)
	return nil
}

func ProvideNormalizer(logger *log.Logger) *avatar.Normalizer {
	wire.Build(wire.Bind(new(log.Log), new(*log.Logger)), avatar.NewNormalizer)
	return nil
}
