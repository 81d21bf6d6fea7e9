package geoip

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultURL points at the MetaCubeX lite GeoIP database, which resolves
// both country codes and category codes like CN or GOOGLE.
const DefaultURL = "https://github.com/MetaCubeX/meta-rules-dat/releases/download/latest/geoip-lite.db"

const userAgent = "sing-box-rules/1.0"

// Fetch returns MMDB bytes from cachePath when fresher than maxAge and
// downloads from url otherwise. A failed download falls back to a stale
// cache with a warning.
func Fetch(url, cachePath string, maxAge time.Duration) ([]byte, error) {
	if url == "" {
		url = DefaultURL
	}

	if st, err := os.Stat(cachePath); err == nil && time.Since(st.ModTime()) < maxAge {
		log.Debugf("using cached geoip db: %s", cachePath)
		return os.ReadFile(cachePath)
	}

	data, err := download(url)
	if err != nil {
		if cached, readErr := os.ReadFile(cachePath); readErr == nil {
			log.Warnf("geoip download failed, using stale cache %s: %v", cachePath, err)
			return cached, nil
		}
		return nil, err
	}

	if cachePath != "" {
		if err := writeCache(cachePath, data); err != nil {
			log.Warnf("failed to cache geoip db: %v", err)
		}
	}
	return data, nil
}

func download(url string) ([]byte, error) {
	client := &http.Client{Timeout: 60 * time.Second}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download geoip db: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download geoip db: status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// writeCache stores data via temp file + rename so a crash mid-write never
// leaves a truncated database behind.
func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
