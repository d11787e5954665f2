package acquire

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/ffmpeg"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
)

var log = logger.Get("AcquireServ")

type Config struct {
	YtdlpBinPath      string `yaml:"ytdlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
	UpstreamProxy     string `yaml:"upstream_proxy" env:"UPSTREAM_PROXY"`
	MaxHeight         int    `yaml:"max_height" env:"MAX_HEIGHT" env-default:"1080"`
	CredentialDirPath string `yaml:"credential_dir" env:"CREDENTIAL_DIR"`
}

type (
	// stagingStore is the subset of the staging store this service
	// needs to materialize and clean up artifacts.
	stagingStore interface {
		Root() string
		NewToken() string
		FindByToken(token string) string
		ResolveSafe(name string) (string, error)
		Delete(name string) error
	}

	// Service wraps the black-box download capability and normalizes
	// its output: a successful acquisition yields an Artifact staged
	// under a fresh opaque name, and every failure surfaces as a
	// classified *Error.
	//
	// Acquisitions are synchronous from the caller's perspective and
	// concurrent across callers; the service holds no mutable state
	// beyond its collaborators, so no locking is required.
	Service struct {
		config              Config
		ffmpegConfig        ffmpeg.Config
		store               stagingStore
		runner              runner
		transcoderAvailable bool
	}
)

// New constructs the acquisition service. Transcoder availability is
// detected once at startup; the format selection strategy is fixed for
// the lifetime of the process.
func New(config Config, ffmpegConfig ffmpeg.Config, store stagingStore) *Service {
	available := ffmpeg.Available(ffmpegConfig)
	if available {
		log.Emit(logger.INFO, "Transcoder detected, separate stream merging enabled\n")
	} else {
		log.Emit(logger.WARNING, "No transcoder detected, downloads restricted to muxed formats\n")
	}

	return &Service{
		config:              config,
		ffmpegConfig:        ffmpegConfig,
		store:               store,
		runner:              newYtdlpRunner(config.YtdlpBinPath, config.UpstreamProxy),
		transcoderAvailable: available,
	}
}

// TranscoderAvailable reports the merge capability detected at startup.
func (service *Service) TranscoderAvailable() bool {
	return service.transcoderAvailable
}

// Acquire resolves the source URL, selects a representation per the
// quality ordering, and transfers it into the staging store under a
// fresh opaque name. The context bounds the external tool invocation;
// cancelling it kills the subprocess and the partial output is removed.
func (service *Service) Acquire(ctx context.Context, sourceURL string) (*Artifact, error) {
	if err := validateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	cookieFile := cookieFileFor(service.config.CredentialDirPath, sourceURL)
	state := stateResolving

	info, diagnostics, err := service.runner.Resolve(ctx, sourceURL, cookieFile)
	if err != nil {
		log.Emit(logger.ERROR, "Resolve failed for acquisition in state %s\n", state)
		return nil, classifyFailure(err, diagnostics)
	}

	state = stateSelecting
	selector, remux, err := service.selectRepresentation(info)
	if err != nil {
		log.Emit(logger.ERROR, "No representation selected, acquisition %s\n", stateFailed)
		return nil, err
	}

	state = stateTransferring
	token := service.store.NewToken()
	request := transferRequest{
		SourceURL:      sourceURL,
		FormatSelector: selector,
		OutputTemplate: filepath.Join(service.store.Root(), token+".%(ext)s"),
		CookieFile:     cookieFile,
		RemuxContainer: remux,
	}

	if diagnostics, err := service.runner.Transfer(ctx, request); err != nil {
		service.removePartials(token)
		log.Emit(logger.ERROR, "Transfer failed, acquisition %s\n", stateFailed)
		return nil, classifyFailure(err, diagnostics)
	}

	artifact, err := service.locateArtifact(token)
	if err != nil {
		service.removePartials(token)
		return nil, err
	}

	state = stateDone
	log.Emit(logger.SUCCESS, "Acquisition %s, artifact '%s' staged (%d bytes)\n", state, artifact.Name, artifact.Size)
	service.probeArtifact(artifact)

	return artifact, nil
}

// selectRepresentation applies the quality ordering. With a transcoder
// present the tool may merge best separate video+audio; without one we
// must pick a single muxed stream ourselves.
func (service *Service) selectRepresentation(info *mediaInfo) (selector string, remux string, err error) {
	if service.transcoderAvailable {
		return mergedSelector(service.config.MaxHeight), preferredContainer, nil
	}

	format, err := selectMuxed(info.Formats, service.config.MaxHeight)
	if err != nil {
		return "", "", err
	}

	return format.ID, "", nil
}

// locateArtifact finds the file the transfer produced. The output
// template defers the extension to the tool, so the final name is only
// known by looking for the token prefix.
func (service *Service) locateArtifact(token string) (*Artifact, error) {
	name := service.store.FindByToken(token)
	if name == "" {
		return nil, NewError(AcquisitionFailed, kindDetails[AcquisitionFailed])
	}

	path, err := service.store.ResolveSafe(name)
	if err != nil {
		return nil, NewError(AcquisitionFailed, kindDetails[AcquisitionFailed])
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, NewError(AcquisitionFailed, kindDetails[AcquisitionFailed])
	}

	return &Artifact{
		Name:      name,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: time.Now(),
	}, nil
}

// removePartials deletes any output the failed transfer left behind
// (including in-progress '.part' files sharing the token prefix).
func (service *Service) removePartials(token string) {
	for {
		name := service.store.FindByToken(token)
		if name == "" {
			return
		}

		if err := service.store.Delete(name); err != nil {
			log.Emit(logger.WARNING, "Could not remove partial output '%s': %v\n", name, err)
			return
		}
	}
}

// probeArtifact confirms the staged file's container with ffprobe when
// a transcoder toolchain is present. Failures are logged only; the
// artifact is already staged and retrievable.
func (service *Service) probeArtifact(artifact *Artifact) {
	if !service.transcoderAvailable {
		return
	}

	metadata, err := ffmpeg.ProbeFile(service.ffmpegConfig, artifact.Path)
	if err != nil {
		log.Emit(logger.WARNING, "Probe of staged artifact '%s' failed: %v\n", artifact.Name, err)
		return
	}

	log.Emit(logger.DEBUG, "Artifact '%s' container: %s\n", artifact.Name, metadata.GetFormat().GetFormatName())
}

func validateSourceURL(sourceURL string) *Error {
	if sourceURL == "" {
		return NewError(InvalidInput, kindDetails[InvalidInput])
	}

	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return NewError(InvalidInput, kindDetails[InvalidInput])
	}

	return nil
}
