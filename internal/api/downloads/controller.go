package downloads

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/acquire"
	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var controllerLogger = logger.Get("DownloadsController")

type (
	// DownloadRequest is the request body for POST /download.
	DownloadRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	// DownloadResponse carries the two retrieval paths for the staged
	// artifact: inline rendering and forced attachment.
	DownloadResponse struct {
		DownloadURL      string `json:"download_url"`
		ForceDownloadURL string `json:"force_download_url"`
	}

	// ErrorResponse carries a sanitized, human-readable failure detail.
	ErrorResponse struct {
		Detail string `json:"detail"`
	}

	Acquirer interface {
		Acquire(ctx context.Context, sourceURL string) (*acquire.Artifact, error)
	}

	Scheduler interface {
		Schedule(name string, delay time.Duration)
	}

	// Controller handles the acquisition endpoint: it invokes the
	// acquirer synchronously for its own request (acquisitions run
	// concurrently across requests), schedules eviction of the staged
	// artifact, and returns the retrieval URLs.
	Controller struct {
		acquirer      Acquirer
		evictor       Scheduler
		evictionDelay time.Duration
		validate      *validator.Validate
		metrics       metrics.Recorder
	}
)

func New(acquirer Acquirer, evictor Scheduler, evictionDelay time.Duration, recorder metrics.Recorder) *Controller {
	return &Controller{
		acquirer:      acquirer,
		evictor:       evictor,
		evictionDelay: evictionDelay,
		validate:      validator.New(),
		metrics:       recorder,
	}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/download", controller.post)
}

// post accepts a source video URL, waits for the acquisition to
// complete, and responds with the artifact's retrieval URLs. Eviction
// is scheduled before responding, so the artifact's lifetime is bounded
// whether or not the client ever retrieves it.
func (controller *Controller) post(ec echo.Context) error {
	var request DownloadRequest
	if err := ec.Bind(&request); err != nil {
		controller.metrics.IncDownload(acquire.InvalidInput.String())
		return ec.JSON(http.StatusBadRequest, ErrorResponse{Detail: "The provided URL is missing or malformed."})
	}

	if err := controller.validate.Struct(&request); err != nil {
		controller.metrics.IncDownload(acquire.InvalidInput.String())
		return ec.JSON(http.StatusBadRequest, ErrorResponse{Detail: "The provided URL is missing or malformed."})
	}

	artifact, err := controller.acquirer.Acquire(ec.Request().Context(), request.URL)
	if err != nil {
		status, detail := statusForError(err)
		controllerLogger.Emit(logger.ERROR, "Acquisition rejected with status %d\n", status)
		controller.metrics.IncDownload(kindLabel(err))
		return ec.JSON(status, ErrorResponse{Detail: detail})
	}

	controller.evictor.Schedule(artifact.Name, controller.evictionDelay)
	controller.metrics.IncDownload("success")

	return ec.JSON(http.StatusOK, DownloadResponse{
		DownloadURL:      "/files/" + artifact.Name,
		ForceDownloadURL: "/files-download/" + artifact.Name,
	})
}

// statusForError maps the acquisition failure taxonomy onto HTTP status
// codes. The detail is always the classified error's own sanitized
// message; unclassified errors collapse to a generic 500.
func statusForError(err error) (int, string) {
	var acquireErr *acquire.Error
	if !errors.As(err, &acquireErr) {
		return http.StatusInternalServerError, "The video could not be downloaded due to an unexpected error."
	}

	switch acquireErr.Kind {
	case acquire.InvalidInput, acquire.UnsupportedSource, acquire.NoEligibleFormat:
		return http.StatusBadRequest, acquireErr.Detail
	case acquire.AuthRequired:
		return http.StatusForbidden, acquireErr.Detail
	case acquire.RateLimited:
		return http.StatusTooManyRequests, acquireErr.Detail
	default:
		return http.StatusInternalServerError, acquireErr.Detail
	}
}

func kindLabel(err error) string {
	var acquireErr *acquire.Error
	if errors.As(err, &acquireErr) {
		return acquireErr.Kind.String()
	}

	return acquire.AcquisitionFailed.String()
}
