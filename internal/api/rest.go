package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/api/downloads"
	"github.com/abdulahad-2/Sage-video-downloader/internal/api/files"
	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router.
	// Its sole responsibility is to create the routes the service
	// exposes and to run the router lifecycle; all behaviour lives in
	// the controllers.
	RestGateway struct {
		config              *RestConfig
		ec                  *echo.Echo
		downloadsController controller
		filesController     controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// download and retrieval routes. The eviction delays are passed down to
// the controllers which schedule against the evictor.
func NewRestGateway(
	config *RestConfig,
	acquirer downloads.Acquirer,
	store *staging.Store,
	evictor *staging.Evictor,
	evictionDelay time.Duration,
	forcedGraceDelay time.Duration,
	recorder metrics.Recorder,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	gateway := &RestGateway{
		config:              config,
		ec:                  ec,
		downloadsController: downloads.New(acquirer, evictor, evictionDelay, recorder),
		filesController:     files.New(store, evictor, forcedGraceDelay, recorder),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())

	gateway.downloadsController.SetRoutes(ec.Group(""))
	gateway.filesController.SetRoutes(ec.Group(""))

	ec.GET("/healthz", func(ec echo.Context) error {
		return ec.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	ec.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return gateway
}

// Handler exposes the underlying router as a plain http.Handler, which
// is what the endpoint tests run against.
func (gateway *RestGateway) Handler() http.Handler {
	return gateway.ec
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
