//go:build wireinject

package bootstrap

import (
	"context"

	"bunkerprices-service/internal/application"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideClock,
	ProvideInstruments,
	ProvideBackends,
	ProvideTokenCache,
	ProvidePoller,
)

// API injector: HTTP server, websocket hub and the optional embedded scheduler.
func InitAPI(ctx context.Context) (*APIApp, func(), error) {
	wire.Build(
		coreSet,
		ProvideHub,
		ProvideStreamingService,
		ProvideServer,
		ProvideScheduler,
		ProvideAPIApp,
	)
	return nil, nil, nil
}

// Worker injector: standalone poll scheduler.
func InitWorker(ctx context.Context) (application.Worker, func(), error) {
	wire.Build(
		coreSet,
		ProvidePricesService,
		ProvideScheduler,
		ProvideWorker,
	)
	return nil, nil, nil
}

// Service injector: used by the operator CLI.
func InitService(ctx context.Context) (*application.PricesService, func(), error) {
	wire.Build(
		coreSet,
		ProvidePricesService,
	)
	return nil, nil, nil
}
