package geoip

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-li/sing-box-rules/internal/rules"
)

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("mmdb-bytes"))
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "cache", "geoip.db")

	data, err := Fetch(srv.URL, cachePath, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(data))
	assert.Equal(t, int32(1), hits.Load())

	cached, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(cached))

	// Fresh cache short-circuits the network.
	data, err = Fetch(srv.URL, cachePath, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(data))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchFallsBackToStaleCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "geoip.db")
	require.NoError(t, os.WriteFile(cachePath, []byte("stale-bytes"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(cachePath, old, old))

	data, err := Fetch(srv.URL, cachePath, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "stale-bytes", string(data))
}

func TestFetchErrorsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Fetch(srv.URL, filepath.Join(t.TempDir(), "geoip.db"), time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRenderSource(t *testing.T) {
	out := RenderSource("CN", "https://example.com/geoip.db", []string{"1.0.1.0/24", "1.0.2.0/23"})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "# GeoIP CN"))
	assert.Equal(t, "# origin: https://example.com/geoip.db", lines[1])
	assert.Equal(t, "1.0.1.0/24", lines[2])
	assert.Equal(t, "1.0.2.0/23", lines[3])
}

// Rendered sources are consumed by the regular ip-cidr pipeline, so every
// network the reader emits has to survive its validation untouched.
func TestRenderSourceLinesPassValidation(t *testing.T) {
	cidrs := []string{
		"1.0.1.0/24",
		"91.108.4.0/22",
		"203.0.113.0/32",
		"2001:db8::/32",
		"2400:cb00::/31",
		"::ffff:1.2.3.0/120",
	}

	out := RenderSource("CN", "https://example.com/geoip.db", cidrs)

	lines := rules.ParseLines(out)
	assert.Equal(t, cidrs, lines)
	assert.Equal(t, cidrs, rules.FilterValid(lines, rules.TypeIPCIDR))
}
