package alloctrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigExcludes(t *testing.T) {
	t.Setenv("ALLOCTRACE_EXCLUDE", "libjemalloc:libtcmalloc:")

	c := loadConfig()
	assert.Equal(t, []string{"libjemalloc", "libtcmalloc"}, c.excludes)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ALLOCTRACE_EXCLUDE", "")
	t.Setenv("ALLOCTRACE_DEBUG", "")

	c := loadConfig()
	assert.False(t, c.debug)
	assert.Empty(t, c.excludes)
}
