package acquire

import "fmt"

// Format is one representation of the source media as reported by the
// resolve step. Mirrors the subset of yt-dlp's format JSON we select on.
type Format struct {
	ID         string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Height     int     `json:"height"`
	Bitrate    float64 `json:"tbr"`
	VideoCodec string  `json:"vcodec"`
	AudioCodec string  `json:"acodec"`
}

// mediaInfo is the normalized output of the resolve step.
type mediaInfo struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Ext     string   `json:"ext"`
	Formats []Format `json:"formats"`
}

const preferredContainer = "mp4"

// muxed reports whether this format carries both video and audio in a
// single stream, i.e. it is usable without a merge step.
func (format *Format) muxed() bool {
	return format.VideoCodec != "" && format.VideoCodec != "none" &&
		format.AudioCodec != "" && format.AudioCodec != "none"
}

// mergedSelector is the format expression used when a transcoder is
// available to merge separate streams: best capped video plus best
// audio, falling back to the best single capped stream.
func mergedSelector(maxHeight int) string {
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", maxHeight, maxHeight)
}

// selectMuxed applies the quality ordering to pick a single already-
// muxed representation: prefer the widely-compatible container, then
// the largest height not exceeding the cap, then the higher bitrate
// among ties. Returns NoEligibleFormat if nothing qualifies.
func selectMuxed(formats []Format, maxHeight int) (*Format, error) {
	var best *Format
	for i := range formats {
		candidate := &formats[i]
		if !candidate.muxed() || candidate.Height > maxHeight {
			continue
		}

		if best == nil || betterMuxed(candidate, best) {
			best = candidate
		}
	}

	if best == nil {
		return nil, NewError(NoEligibleFormat, "No downloadable format satisfies the quality and compatibility constraints for this video.")
	}

	return best, nil
}

func betterMuxed(candidate *Format, incumbent *Format) bool {
	candidatePreferred := candidate.Ext == preferredContainer
	incumbentPreferred := incumbent.Ext == preferredContainer
	if candidatePreferred != incumbentPreferred {
		return candidatePreferred
	}

	if candidate.Height != incumbent.Height {
		return candidate.Height > incumbent.Height
	}

	return candidate.Bitrate > incumbent.Bitrate
}
