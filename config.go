package alloctrace

import (
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/k2io/alloctrace/internal/logger"
)

// Runtime configuration, read from the environment once at load.
//
//	ALLOCTRACE_DEBUG    verbose patch logging
//	ALLOCTRACE_EXCLUDE  colon-separated object-name substrings to
//	                    skip while patching, on top of the built-in
//	                    vDSO/linker/self excludes
type tracerConfig struct {
	debug    bool
	excludes []string
}

var cfg = loadConfig()

func loadConfig() tracerConfig {
	c := tracerConfig{debug: env.Bool("ALLOCTRACE_DEBUG")}
	if s := os.Getenv("ALLOCTRACE_EXCLUDE"); s != "" {
		for _, pattern := range strings.Split(s, ":") {
			if pattern != "" {
				c.excludes = append(c.excludes, pattern)
			}
		}
	}
	logger.SetDebug(c.debug)
	return c
}
