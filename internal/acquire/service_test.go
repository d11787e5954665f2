package acquire

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/abdulahad-2/Sage-video-downloader/internal/ffmpeg"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	resolveFunc  func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error)
	transferFunc func(ctx context.Context, request transferRequest) (string, error)

	lastTransfer *transferRequest
}

func (stub *stubRunner) Resolve(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
	return stub.resolveFunc(ctx, sourceURL, cookieFile)
}

func (stub *stubRunner) Transfer(ctx context.Context, request transferRequest) (string, error) {
	stub.lastTransfer = &request
	return stub.transferFunc(ctx, request)
}

func newTestService(t *testing.T, stub *stubRunner, transcoderAvailable bool) (*Service, *staging.Store) {
	t.Helper()

	store, err := staging.New(staging.Config{DirPath: t.TempDir(), FilenameByteLimit: 255})
	require.NoError(t, err)

	service := &Service{
		config:              Config{MaxHeight: 1080},
		ffmpegConfig:        ffmpeg.Config{FfmpegBinPath: "definitely-not-a-real-binary", FfprobeBinPath: "definitely-not-a-real-binary"},
		store:               store,
		runner:              stub,
		transcoderAvailable: transcoderAvailable,
	}

	return service, store
}

func muxedInfo() *mediaInfo {
	return &mediaInfo{
		ID:    "abc123",
		Title: "some video",
		Formats: []Format{
			{ID: "22", Ext: "mp4", Height: 720, Bitrate: 1500, VideoCodec: "avc1", AudioCodec: "mp4a"},
		},
	}
}

// writeTransferOutput materializes the file a real transfer would have
// produced through the extension-templated output path.
func writeTransferOutput(t *testing.T, request transferRequest, ext string, content []byte) {
	t.Helper()

	path := strings.Replace(request.OutputTemplate, "%(ext)s", ext, 1)
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestAcquire_StagesArtifactUnderOpaqueName(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			return muxedInfo(), "", nil
		},
	}
	stub.transferFunc = func(ctx context.Context, request transferRequest) (string, error) {
		writeTransferOutput(t, request, "mp4", []byte("media bytes"))
		return "", nil
	}

	service, store := newTestService(t, stub, false)
	artifact, err := service.Acquire(context.Background(), "https://example.com/videoA")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(artifact.Name, ".mp4"))
	assert.NotContains(t, artifact.Name, "some video", "artifact name must not derive from source metadata")
	assert.Equal(t, int64(len("media bytes")), artifact.Size)

	path, err := store.ResolveSafe(artifact.Name)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Without a transcoder the transfer must request the single muxed
	// representation, with no merge container.
	require.NotNil(t, stub.lastTransfer)
	assert.Equal(t, "22", stub.lastTransfer.FormatSelector)
	assert.Equal(t, "", stub.lastTransfer.RemuxContainer)
}

func TestAcquire_RequestsMergedStreamsWhenTranscoderAvailable(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			return muxedInfo(), "", nil
		},
	}
	stub.transferFunc = func(ctx context.Context, request transferRequest) (string, error) {
		writeTransferOutput(t, request, "mp4", []byte("merged media"))
		return "", nil
	}

	service, _ := newTestService(t, stub, true)
	_, err := service.Acquire(context.Background(), "https://example.com/videoA")
	require.NoError(t, err)

	require.NotNil(t, stub.lastTransfer)
	assert.Equal(t, mergedSelector(1080), stub.lastTransfer.FormatSelector)
	assert.Equal(t, "mp4", stub.lastTransfer.RemuxContainer)
}

func TestAcquire_RejectsInvalidURLWithoutInvokingTool(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			t.Fatal("resolve should not be invoked for invalid input")
			return nil, "", nil
		},
	}

	service, _ := newTestService(t, stub, false)

	for _, sourceURL := range []string{"", "not-a-url", "ftp://example.com/file"} {
		_, err := service.Acquire(context.Background(), sourceURL)

		var acquireErr *Error
		require.True(t, errors.As(err, &acquireErr), "url %q", sourceURL)
		assert.Equal(t, InvalidInput, acquireErr.Kind)
	}
}

func TestAcquire_ClassifiesResolveFailures(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			return nil, "ERROR: HTTP Error 429: Too Many Requests", errors.New("exit status 1")
		},
	}

	service, _ := newTestService(t, stub, false)
	_, err := service.Acquire(context.Background(), "https://example.com/videoA")

	var acquireErr *Error
	require.True(t, errors.As(err, &acquireErr))
	assert.Equal(t, RateLimited, acquireErr.Kind)
	assert.NotContains(t, acquireErr.Detail, "429")
}

func TestAcquire_RemovesPartialOutputOnTransferFailure(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			return muxedInfo(), "", nil
		},
	}
	stub.transferFunc = func(ctx context.Context, request transferRequest) (string, error) {
		writeTransferOutput(t, request, "mp4.part", []byte("partial"))
		return "ERROR: connection reset", errors.New("exit status 1")
	}

	service, store := newTestService(t, stub, false)
	_, err := service.Acquire(context.Background(), "https://example.com/videoA")

	var acquireErr *Error
	require.True(t, errors.As(err, &acquireErr))
	assert.Equal(t, AcquisitionFailed, acquireErr.Kind)

	entries, readErr := os.ReadDir(store.Root())
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial transfer output must be cleaned up")
}

func TestAcquire_FailsWhenToolProducesNoFile(t *testing.T) {
	stub := &stubRunner{
		resolveFunc: func(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
			return muxedInfo(), "", nil
		},
		transferFunc: func(ctx context.Context, request transferRequest) (string, error) {
			return "", nil
		},
	}

	service, _ := newTestService(t, stub, false)
	_, err := service.Acquire(context.Background(), "https://example.com/videoA")

	var acquireErr *Error
	require.True(t, errors.As(err, &acquireErr))
	assert.Equal(t, AcquisitionFailed, acquireErr.Kind)
}
