package acquire

import "strings"

// signature pairs a known substring of the external tool's diagnostics
// with the classified failure it represents. The Detail carried on the
// resulting Error is our own generic phrasing; upstream text (which can
// identify the specific video or account) is never echoed back.
type signature struct {
	match string
	kind  ErrorKind
}

var failureSignatures = []signature{
	{"is not a valid url", InvalidInput},
	{"unsupported url", UnsupportedSource},
	{"no suitable extractor", UnsupportedSource},
	{"sign in to confirm", AuthRequired},
	{"login required", AuthRequired},
	{"this video is private", AuthRequired},
	{"use --cookies", AuthRequired},
	{"account has been confirmed", AuthRequired},
	{"http error 429", RateLimited},
	{"too many requests", RateLimited},
	{"rate-limit reached", RateLimited},
	{"requested format is not available", NoEligibleFormat},
}

var kindDetails = map[ErrorKind]string{
	InvalidInput:      "The provided URL is missing or malformed.",
	UnsupportedSource: "This video platform is not supported, or the URL does not point at a video page.",
	AuthRequired:      "The source requires authentication which is not configured for this platform.",
	RateLimited:       "The source is rate-limiting requests; try again later.",
	NoEligibleFormat:  "No downloadable format satisfies the quality and compatibility constraints for this video.",
	AcquisitionFailed: "The video could not be downloaded due to an unexpected error.",
}

// classifyFailure maps the external tool's combined error/stderr output
// onto the failure taxonomy. Anything unmatched collapses into
// AcquisitionFailed with a generic detail.
func classifyFailure(err error, diagnostics string) *Error {
	haystack := strings.ToLower(diagnostics)
	if err != nil {
		haystack += "\n" + strings.ToLower(err.Error())
	}

	for _, sig := range failureSignatures {
		if strings.Contains(haystack, sig.match) {
			return NewError(sig.kind, kindDetails[sig.kind])
		}
	}

	return NewError(AcquisitionFailed, kindDetails[AcquisitionFailed])
}
