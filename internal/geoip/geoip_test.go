package geoip

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCode(t *testing.T) {
	tests := []struct {
		name   string
		record interface{}
		want   string
	}{
		{"bare string", "cn", "CN"},
		{"country iso_code", map[string]interface{}{
			"country": map[string]interface{}{"iso_code": "jp"},
		}, "JP"},
		{"top level iso_code", map[string]interface{}{"iso_code": "us"}, "US"},
		{"category code", map[string]interface{}{"code": "google"}, "GOOGLE"},
		{"unrecognized map", map[string]interface{}{"asn": float64(13335)}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordCode(tt.record))
		})
	}
}

func TestCIDRsLookup(t *testing.T) {
	db := &DB{cidrs: map[string][]string{
		"CN":     {"1.0.1.0/24", "1.0.2.0/23"},
		"GOOGLE": {"8.8.8.0/24"},
	}}

	cidrs, ok := db.CIDRs("cn")
	require.True(t, ok)
	assert.Equal(t, []string{"1.0.1.0/24", "1.0.2.0/23"}, cidrs)

	_, ok = db.CIDRs("INVALIDXXXX")
	assert.False(t, ok)

	assert.Equal(t, []string{"CN", "GOOGLE"}, db.Codes())
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load([]byte("not an mmdb"))
	assert.Error(t, err)
}

func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping download in short mode")
	}

	resp, err := http.Get(DefaultURL)
	if err != nil {
		t.Skipf("skipping test due to network error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("skipping test due to download failure: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	start := time.Now()
	db, err := Load(data)
	require.NoError(t, err)
	t.Logf("db loaded in %v", time.Since(start))

	tests := []struct {
		code      string
		expectHit bool
	}{
		{"CN", true},
		{"JP", true},
		{"GOOGLE", true},
		{"CLOUDFLARE", true},
		{"INVALIDXXXX", false},
	}
	for _, tt := range tests {
		cidrs, found := db.CIDRs(tt.code)
		assert.Equal(t, tt.expectHit, found, "CIDRs(%s)", tt.code)
		if found {
			assert.NotEmpty(t, cidrs, "CIDRs(%s)", tt.code)
		}
	}
}
