package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
)

var ytdlpLog = logger.Get("YtDlp")

// runner abstracts the external download capability so the rest of the
// adapter (and its tests) are agnostic to the concrete mechanism that
// performs extraction.
type runner interface {
	// Resolve queries the available representations for the URL without
	// transferring any media data. The returned diagnostics string
	// carries the tool's stderr for classification; it must never be
	// surfaced to a client.
	Resolve(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error)

	// Transfer downloads the selected representation to the output
	// template path.
	Transfer(ctx context.Context, request transferRequest) (string, error)
}

type transferRequest struct {
	SourceURL      string
	FormatSelector string
	OutputTemplate string
	CookieFile     string
	RemuxContainer string
}

// ytdlpRunner shells out to the yt-dlp binary. Commands are bound to
// the caller's context, so cancelling the originating request kills the
// subprocess.
type ytdlpRunner struct {
	binPath string
	proxy   string
}

func newYtdlpRunner(binPath string, proxy string) *ytdlpRunner {
	return &ytdlpRunner{binPath: binPath, proxy: proxy}
}

func (runner *ytdlpRunner) Resolve(ctx context.Context, sourceURL string, cookieFile string) (*mediaInfo, string, error) {
	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
	}
	args = runner.appendCommonArgs(args, cookieFile)
	args = append(args, sourceURL)

	stdout, stderr, err := runner.exec(ctx, args)
	if err != nil {
		return nil, stderr, err
	}

	var info mediaInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, stderr, fmt.Errorf("failed to decode resolve output: %w", err)
	}

	return &info, stderr, nil
}

func (runner *ytdlpRunner) Transfer(ctx context.Context, request transferRequest) (string, error) {
	args := []string{
		"--format", request.FormatSelector,
		"--output", request.OutputTemplate,
		"--no-playlist",
		"--restrict-filenames",
		"--no-progress",
		"--no-warnings",
		"--quiet",
	}
	if request.RemuxContainer != "" {
		args = append(args, "--merge-output-format", request.RemuxContainer)
	}
	args = runner.appendCommonArgs(args, request.CookieFile)
	args = append(args, request.SourceURL)

	_, stderr, err := runner.exec(ctx, args)
	return stderr, err
}

func (runner *ytdlpRunner) appendCommonArgs(args []string, cookieFile string) []string {
	if runner.proxy != "" {
		args = append(args, "--proxy", runner.proxy)
	}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}

	return args
}

func (runner *ytdlpRunner) exec(ctx context.Context, args []string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, runner.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	ytdlpLog.Emit(logger.DEBUG, "Executing %s with %d arg(s)\n", runner.binPath, len(args))
	err := cmd.Run()
	if err != nil {
		ytdlpLog.Emit(logger.DEBUG, "Command failed: %v\n", err)
	}

	return stdout.Bytes(), stderr.String(), err
}
