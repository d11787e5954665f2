package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/abdulahad-2/Sage-video-downloader/internal/acquire"
	"github.com/abdulahad-2/Sage-video-downloader/internal/api"
	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// sageImpl is the top-level object for the server, responsible for
// constructing the staging store, eviction scheduler, acquisition
// service and REST gateway, and running them until stopped.
type sageImpl struct {
	config SageConfig

	store       *staging.Store
	evictor     *staging.Evictor
	acquisition *acquire.Service
	restGateway RunnableService
}

// New bootstraps the services using the provided config. Construction
// failures (e.g. an unusable staging directory) are returned rather
// than deferred to Run.
func New(config SageConfig) (*sageImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping services using config: %#v\n", config)

	store, err := staging.New(config.Staging)
	if err != nil {
		return nil, fmt.Errorf("failed to construct staging store: %w", err)
	}

	recorder := metrics.NewProm("sage")
	evictor := staging.NewEvictor(store, config.Staging, recorder)
	acquisition := acquire.New(config.Acquire, config.Ffmpeg, store)

	gateway := api.NewRestGateway(
		&config.Rest,
		acquisition,
		store,
		evictor,
		config.Staging.EvictionDelay(),
		config.Staging.ForcedGraceDelay(),
		recorder,
	)

	return &sageImpl{
		config:      config,
		store:       store,
		evictor:     evictor,
		acquisition: acquisition,
		restGateway: gateway,
	}, nil
}

// Run brings up the eviction scheduler and the REST gateway and blocks
// until the provided context is cancelled or a service crashes.
func (sage *sageImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	wg := &sync.WaitGroup{}
	sage.spawnAsyncService(ctx, wg, sage.evictor, "eviction-service", crashHandler)
	sage.spawnAsyncService(ctx, wg, sage.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService runs the provided service in its own goroutine,
// keeping the service waitgroup updated and recovering panics into the
// crash handler.
func (sage *sageImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
