package versions

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.True(t, strings.HasPrefix(info.Platform, runtime.GOOS+"/"))
}
