package ffmpeg

import (
	"fmt"
	"os/exec"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe"`
}

// Available reports whether the configured ffmpeg binary can be found
// on the host. The acquisition adapter uses this to decide whether it
// may request separate video+audio streams (which need a merge step) or
// must restrict itself to an already-muxed representation.
func Available(config Config) bool {
	_, err := exec.LookPath(config.FfmpegBinPath)
	return err == nil
}

// ProbeFile runs ffprobe against the given file and returns its
// metadata (container format, streams, duration).
func ProbeFile(config Config, path string) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{
		FfmpegBinPath:  config.FfmpegBinPath,
		FfprobeBinPath: config.FfprobeBinPath,
	}

	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to probe file metadata using ffprobe: %w", err)
	}

	return metadata, nil
}
