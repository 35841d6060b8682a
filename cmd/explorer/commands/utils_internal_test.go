/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils_internal_test.go
Description: Tests for unexported command helpers.
*/

package commands

import (
	"testing"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"Authorization: Bearer abc", "X-Trace:1"}, ":")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc", "X-Trace": "1"}, pairs)

	pairs, err = parsePairs(nil, "=")
	require.NoError(t, err)
	assert.Nil(t, pairs)

	_, err = parsePairs([]string{"novalue"}, "=")
	assert.Error(t, err)
	_, err = parsePairs([]string{"=value"}, "=")
	assert.Error(t, err)
}

func TestGraphFileName(t *testing.T) {
	assert.Equal(t, "graph.json", graphFileName("json", "none"))
	assert.Equal(t, "graph.json.gz", graphFileName("json-pretty", "gzip"))
	assert.Equal(t, "graph.msgpack.zst", graphFileName("msgpack", "zstd"))
}

func TestBrowserOptionsFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("web.start_url", "http://localhost:3000")
	viper.Set("web.headless", true)
	viper.Set("web.headers", []string{"X-Env: test"})
	viper.Set("web.cookies", []string{"session=abc"})
	viper.Set("web.poll_interval", "50ms")

	cfg := core.DefaultExplorerConfig()
	cfg.CaptureScreenshots = false
	cfg.DetectHiddenElements = true

	opts, err := browserOptionsFromViper(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", opts.StartURL)
	assert.Equal(t, map[string]string{"X-Env": "test"}, opts.Headers)
	assert.Equal(t, map[string]string{"session": "abc"}, opts.Cookies)
	assert.Equal(t, 50*time.Millisecond, opts.PollInterval)
	assert.Equal(t, 1280, opts.ViewportWidth)
	assert.False(t, opts.CaptureScreenshots)
	assert.True(t, opts.DetectHiddenElements)

	viper.Set("web.cookies", []string{"broken"})
	_, err = browserOptionsFromViper(cfg)
	assert.Error(t, err)
}
