package acquire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformForHost(t *testing.T) {
	assert.Equal(t, "youtube", platformForHost("www.youtube.com"))
	assert.Equal(t, "youtube", platformForHost("youtu.be"))
	assert.Equal(t, "twitter", platformForHost("x.com"))
	assert.Equal(t, "tiktok", platformForHost("TikTok.com"))
	assert.Equal(t, "", platformForHost("example.org"))
	assert.Equal(t, "", platformForHost("notyoutube.com.evil.org"))
}

func TestCookieFileFor_PrefersPlatformProfile(t *testing.T) {
	dir := t.TempDir()
	platformCookie := filepath.Join(dir, "youtube.txt")
	genericCookie := filepath.Join(dir, "generic.txt")
	require.NoError(t, os.WriteFile(platformCookie, []byte("cookies"), 0o600))
	require.NoError(t, os.WriteFile(genericCookie, []byte("cookies"), 0o600))

	assert.Equal(t, platformCookie, cookieFileFor(dir, "https://www.youtube.com/watch?v=abc"))
}

func TestCookieFileFor_FallsBackToGenericProfile(t *testing.T) {
	dir := t.TempDir()
	genericCookie := filepath.Join(dir, "generic.txt")
	require.NoError(t, os.WriteFile(genericCookie, []byte("cookies"), 0o600))

	assert.Equal(t, genericCookie, cookieFileFor(dir, "https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, genericCookie, cookieFileFor(dir, "https://example.org/video"))
}

func TestCookieFileFor_NoCredentialWhenNothingMaterialized(t *testing.T) {
	assert.Equal(t, "", cookieFileFor(t.TempDir(), "https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, "", cookieFileFor("", "https://www.youtube.com/watch?v=abc"))
}
