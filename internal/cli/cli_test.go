package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/shakegrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		want       *app.Config
		shouldExit bool
		errCode    int
		errMsg     string
	}{
		{
			name: "positional paths with defaults",
			args: []string{"a.hcl", "dir"},
			want: &app.Config{
				ScenarioPaths: []string{"a.hcl", "dir"},
				OutputDir:     "results",
				Workers:       1,
				LogFormat:     "text",
				LogLevel:      "info",
				EngineTimeout: 10 * time.Second,
			},
		},
		{
			name: "all flags",
			args: []string{
				"-s", "sweep.hcl", "-only", "a_loose, a_dense,", "-out", "out", "-workers", "4",
				"-log-format", "JSON", "-log-level", "debug", "-healthcheck-port", "8080",
				"-catalog", "runs.db", "-upload-url", "http://store/bucket", "-max-wall-clock", "5m",
				"-engine-timeout", "2s",
			},
			want: &app.Config{
				ScenarioPaths:   []string{"sweep.hcl"},
				Only:            []string{"a_loose", "a_dense"},
				OutputDir:       "out",
				Workers:         4,
				LogFormat:       "json",
				LogLevel:        "debug",
				HealthcheckPort: 8080,
				CatalogPath:     "runs.db",
				UploadURL:       "http://store/bucket",
				MaxWallClock:    5 * time.Minute,
				EngineTimeout:   2 * time.Second,
			},
		},
		{
			name: "preset",
			args: []string{"-preset", "bansilaghat"},
			want: &app.Config{
				Preset:        "bansilaghat",
				OutputDir:     "results",
				Workers:       1,
				LogFormat:     "text",
				LogLevel:      "info",
				EngineTimeout: 10 * time.Second,
			},
		},
		{name: "help", args: []string{"-h"}, shouldExit: true},
		{name: "nothing to run", args: nil, shouldExit: true},
		{name: "unknown flag", args: []string{"-nope"}, errCode: 2, errMsg: "flag provided but not defined: -nope"},
		{name: "bad format", args: []string{"-log-format", "xml", "a.hcl"}, errCode: 2, errMsg: "invalid log-format"},
		{name: "bad level", args: []string{"-log-level", "trace", "a.hcl"}, errCode: 2, errMsg: "invalid log-level"},
		{name: "zero workers", args: []string{"-workers", "0", "a.hcl"}, errCode: 2, errMsg: "workers must be positive"},
		{name: "preset and path", args: []string{"-preset", "babai", "a.hcl"}, errCode: 2, errMsg: "mutually exclusive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}

			cfg, shouldExit, err := Parse(tc.args, out)

			if tc.errCode != 0 {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, tc.errCode, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.shouldExit, shouldExit)
			if tc.shouldExit {
				assert.Nil(t, cfg)
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Empty(t, cmp.Diff(tc.want, cfg))
		})
	}
}
