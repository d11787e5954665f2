package acquire

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// knownPlatforms maps host suffixes to named credential profiles. A
// profile name corresponds to a cookie file materialized out-of-band in
// the configured credential directory (<dir>/<profile>.txt).
var knownPlatforms = map[string]string{
	"youtube.com":   "youtube",
	"youtu.be":      "youtube",
	"vimeo.com":     "vimeo",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"instagram.com": "instagram",
	"tiktok.com":    "tiktok",
	"facebook.com":  "facebook",
	"twitch.tv":     "twitch",
}

const genericProfile = "generic"

// platformForHost returns the credential profile name for the host, or
// an empty string when the host matches no known platform.
func platformForHost(host string) string {
	host = strings.ToLower(host)
	for suffix, profile := range knownPlatforms {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return profile
		}
	}

	return ""
}

// cookieFileFor resolves the cookie file to pass to the external tool
// for the given source URL: the platform-specific profile if one is
// materialized, the generic profile as a fallback, and no credential at
// all when neither exists (or no credential directory is configured).
func cookieFileFor(credentialDir string, sourceURL string) string {
	if credentialDir == "" {
		return ""
	}

	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}

	if profile := platformForHost(parsed.Hostname()); profile != "" {
		path := filepath.Join(credentialDir, profile+".txt")
		if fileExists(path) {
			return path
		}
	}

	fallback := filepath.Join(credentialDir, genericProfile+".txt")
	if fileExists(fallback) {
		return fallback
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
