package client

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purc-tools/purcrdr/constants"
)

func TestBindClientAddrMatchesSpecForm(t *testing.T) {
	addr, err := bindClientAddr("myapp", "myrunner")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(addr.Name, constants.DefaultCliPath))
	assert.True(t, strings.HasSuffix(addr.Name, "-"+strconv.Itoa(os.Getpid())))
	assert.NotContains(t, addr.Name, "//", "DefaultCliPath's trailing slash must not be doubled")
}

func TestBindClientAddrFallbackIncludesUUID(t *testing.T) {
	addr, err := bindClientAddrFallback("myapp", "myrunner")
	require.NoError(t, err)

	base, err := bindClientAddr("myapp", "myrunner")
	require.NoError(t, err)

	assert.NotEqual(t, base.Name, addr.Name)
	assert.True(t, strings.HasSuffix(addr.Name, "-"+strconv.Itoa(os.Getpid())))
}
