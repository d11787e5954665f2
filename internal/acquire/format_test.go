package acquire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergedSelector_CapsHeight(t *testing.T) {
	assert.Equal(t, "bestvideo[height<=1080]+bestaudio/best[height<=1080]", mergedSelector(1080))
	assert.Equal(t, "bestvideo[height<=720]+bestaudio/best[height<=720]", mergedSelector(720))
}

func TestSelectMuxed_PrefersCompatibleContainer(t *testing.T) {
	formats := []Format{
		{ID: "1", Ext: "webm", Height: 720, Bitrate: 2000, VideoCodec: "vp9", AudioCodec: "opus"},
		{ID: "2", Ext: "mp4", Height: 720, Bitrate: 1500, VideoCodec: "avc1", AudioCodec: "mp4a"},
	}

	selected, err := selectMuxed(formats, 1080)
	require.NoError(t, err)
	assert.Equal(t, "2", selected.ID)
}

func TestSelectMuxed_PrefersLargestCappedHeight(t *testing.T) {
	formats := []Format{
		{ID: "low", Ext: "mp4", Height: 360, Bitrate: 700, VideoCodec: "avc1", AudioCodec: "mp4a"},
		{ID: "mid", Ext: "mp4", Height: 720, Bitrate: 1500, VideoCodec: "avc1", AudioCodec: "mp4a"},
		{ID: "high", Ext: "mp4", Height: 2160, Bitrate: 9000, VideoCodec: "avc1", AudioCodec: "mp4a"},
	}

	selected, err := selectMuxed(formats, 1080)
	require.NoError(t, err)
	assert.Equal(t, "mid", selected.ID)
}

func TestSelectMuxed_PrefersHigherBitrateAmongTies(t *testing.T) {
	formats := []Format{
		{ID: "a", Ext: "mp4", Height: 720, Bitrate: 1200, VideoCodec: "avc1", AudioCodec: "mp4a"},
		{ID: "b", Ext: "mp4", Height: 720, Bitrate: 1800, VideoCodec: "avc1", AudioCodec: "mp4a"},
	}

	selected, err := selectMuxed(formats, 1080)
	require.NoError(t, err)
	assert.Equal(t, "b", selected.ID)
}

func TestSelectMuxed_IgnoresSeparateStreams(t *testing.T) {
	formats := []Format{
		{ID: "video-only", Ext: "mp4", Height: 1080, Bitrate: 4000, VideoCodec: "avc1", AudioCodec: "none"},
		{ID: "audio-only", Ext: "m4a", Bitrate: 128, VideoCodec: "none", AudioCodec: "mp4a"},
		{ID: "muxed", Ext: "mp4", Height: 360, Bitrate: 700, VideoCodec: "avc1", AudioCodec: "mp4a"},
	}

	selected, err := selectMuxed(formats, 1080)
	require.NoError(t, err)
	assert.Equal(t, "muxed", selected.ID)
}

func TestSelectMuxed_FailsWhenNothingQualifies(t *testing.T) {
	formats := []Format{
		{ID: "video-only", Ext: "mp4", Height: 1080, Bitrate: 4000, VideoCodec: "avc1", AudioCodec: "none"},
		{ID: "too-tall", Ext: "mp4", Height: 2160, Bitrate: 9000, VideoCodec: "avc1", AudioCodec: "mp4a"},
	}

	_, err := selectMuxed(formats, 1080)
	require.Error(t, err)

	var acquireErr *Error
	require.True(t, errors.As(err, &acquireErr))
	assert.Equal(t, NoEligibleFormat, acquireErr.Kind)
}
