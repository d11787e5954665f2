package files

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

var controllerLogger = logger.Get("FilesController")

type (
	ErrorResponse struct {
		Detail string `json:"detail"`
	}

	Resolver interface {
		ResolveSafe(name string) (string, error)
	}

	Scheduler interface {
		Schedule(name string, delay time.Duration)
	}

	// Controller serves staged artifacts. Both read paths resolve the
	// requested name safely before touching the filesystem, and both
	// disable caching: artifacts are one-shot, soon to be deleted, and
	// potentially sensitive, so no intermediary may retain them.
	Controller struct {
		store            Resolver
		evictor          Scheduler
		forcedGraceDelay time.Duration
		metrics          metrics.Recorder
	}
)

func New(store Resolver, evictor Scheduler, forcedGraceDelay time.Duration, recorder metrics.Recorder) *Controller {
	return &Controller{
		store:            store,
		evictor:          evictor,
		forcedGraceDelay: forcedGraceDelay,
		metrics:          recorder,
	}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/files/:name", controller.getInline)
	eg.GET("/files-download/:name", controller.getForced)
}

// getInline streams the artifact for direct rendering, with the content
// type sniffed from the stored bytes rather than trusted from the name.
func (controller *Controller) getInline(ec echo.Context) error {
	path, name, ok := controller.resolve(ec)
	if !ok {
		return nil
	}

	contentType := "application/octet-stream"
	if detected, err := mimetype.DetectFile(path); err == nil {
		contentType = detected.String()
	}

	file, err := os.Open(path)
	if err != nil {
		return ec.JSON(http.StatusNotFound, ErrorResponse{Detail: "No such artifact."})
	}
	defer file.Close()

	setNoStoreHeaders(ec)
	controller.metrics.IncArtifactServed("inline")
	controllerLogger.Emit(logger.INFO, "Serving artifact '%s' inline as %s\n", name, contentType)

	return ec.Stream(http.StatusOK, contentType, file)
}

// getForced serves the artifact with an attachment disposition and, as
// a side effect, re-schedules its eviction with the shorter grace
// delay: a forced download is evidence the client has begun
// transferring the file, so a bounded window is enough to finish.
func (controller *Controller) getForced(ec echo.Context) error {
	path, name, ok := controller.resolve(ec)
	if !ok {
		return nil
	}

	setNoStoreHeaders(ec)
	controller.evictor.Schedule(name, controller.forcedGraceDelay)
	controller.metrics.IncArtifactServed("forced")
	controllerLogger.Emit(logger.INFO, "Serving artifact '%s' as attachment\n", name)

	return ec.Attachment(path, name)
}

// resolve validates the requested name and checks the artifact exists,
// writing the failure response itself when either check fails. A name
// which fails safe resolution is a 400, distinct from the 404 given for
// a well-formed name whose artifact is absent or evicted.
func (controller *Controller) resolve(ec echo.Context) (path string, name string, ok bool) {
	name = ec.Param("name")

	path, resolveErr := controller.store.ResolveSafe(name)
	if resolveErr != nil {
		if !errors.Is(resolveErr, staging.ErrInvalidName) {
			controllerLogger.Emit(logger.WARNING, "Unexpected resolution failure: %v\n", resolveErr)
		}

		_ = ec.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Invalid artifact name."})
		return "", "", false
	}

	if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
		_ = ec.JSON(http.StatusNotFound, ErrorResponse{Detail: "No such artifact."})
		return "", "", false
	}

	return path, name, true
}

func setNoStoreHeaders(ec echo.Context) {
	ec.Response().Header().Set("Cache-Control", "no-store")
	ec.Response().Header().Set("Pragma", "no-cache")
}
