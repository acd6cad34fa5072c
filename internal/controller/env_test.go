package controller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noEnv(string) string { return "" }

func noOSRelease() ([]byte, error) { return nil, errors.New("not present") }

func TestCompatible_PlainLinux(t *testing.T) {
	env := hostEnv{goos: "linux", getenv: noEnv, osRelease: func() ([]byte, error) {
		return []byte("NAME=\"Debian GNU/Linux\"\nID=debian\n"), nil
	}}

	ok, reason := env.compatible()
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestCompatible_BrowserRuntime(t *testing.T) {
	env := hostEnv{goos: "js", getenv: noEnv, osRelease: noOSRelease}

	ok, reason := env.compatible()
	assert.False(t, ok)
	assert.Equal(t, "browser-hosted runtime", reason)
}

func TestCompatible_CloudDesktop(t *testing.T) {
	env := hostEnv{goos: "linux", getenv: func(key string) string {
		if key == envCloudShell {
			return "true"
		}
		return ""
	}, osRelease: noOSRelease}

	ok, reason := env.compatible()
	assert.False(t, ok)
	assert.Equal(t, "restricted cloud desktop", reason)
}

func TestCompatible_IncompatibleOSVariant(t *testing.T) {
	env := hostEnv{goos: "linux", getenv: noEnv, osRelease: func() ([]byte, error) {
		return []byte("ID=chromeos\nVERSION_ID=120\n"), nil
	}}

	ok, reason := env.compatible()
	assert.False(t, ok)
	assert.Equal(t, "incompatible os variant", reason)
}

func TestCompatible_DarwinSkipsOSRelease(t *testing.T) {
	env := hostEnv{goos: "darwin", getenv: noEnv, osRelease: func() ([]byte, error) {
		t.Fatal("os-release must not be read on darwin")
		return nil, nil
	}}

	ok, _ := env.compatible()
	assert.True(t, ok)
}

func TestOSReleaseID(t *testing.T) {
	assert.Equal(t, "ubuntu", osReleaseID("NAME=Ubuntu\nID=ubuntu\n"))
	assert.Equal(t, "fedora", osReleaseID(`ID="fedora"`))
	assert.Empty(t, osReleaseID("NAME=Something\n"))
}
