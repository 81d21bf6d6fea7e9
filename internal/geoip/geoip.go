// Package geoip extracts per-country CIDR lists from MaxMind MMDB
// databases, used to regenerate ip-cidr rule sources.
package geoip

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oschwald/maxminddb-golang"
	log "github.com/sirupsen/logrus"
)

// DB indexes the networks of an MMDB database by country or category code.
type DB struct {
	cidrs map[string][]string
}

// Load parses MMDB bytes and builds the code index.
func Load(data []byte) (*DB, error) {
	db, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb: %w", err)
	}
	defer db.Close()

	cidrs := make(map[string][]string)
	count := 0

	networks := db.Networks(maxminddb.SkipAliasedNetworks)
	for networks.Next() {
		var record interface{}
		subnet, err := networks.Network(&record)
		if err != nil {
			continue
		}
		code := recordCode(record)
		if code == "" {
			continue
		}
		cidrs[code] = append(cidrs[code], subnet.String())
		count++
	}
	if err := networks.Err(); err != nil {
		return nil, fmt.Errorf("failed to walk mmdb networks: %w", err)
	}

	log.Debugf("geoip db loaded: %d networks across %d codes", count, len(cidrs))
	return &DB{cidrs: cidrs}, nil
}

// recordCode digs the country or category code out of an MMDB record.
// Lite databases store a bare string, full ones nest it under
// country.iso_code.
func recordCode(record interface{}) string {
	switch v := record.(type) {
	case string:
		return strings.ToUpper(v)
	case map[string]interface{}:
		if c, ok := v["country"].(map[string]interface{}); ok {
			if iso, ok := c["iso_code"].(string); ok {
				return strings.ToUpper(iso)
			}
		} else if iso, ok := v["iso_code"].(string); ok {
			return strings.ToUpper(iso)
		} else if v["code"] != nil { // Maybe 'code'?
			if s, ok := v["code"].(string); ok {
				return strings.ToUpper(s)
			}
		}
	}
	return ""
}

// CIDRs returns the list of CIDRs for the given country code or category.
func (d *DB) CIDRs(code string) ([]string, bool) {
	cidrs, ok := d.cidrs[strings.ToUpper(code)]
	return cidrs, ok
}

// Codes lists every known code in sorted order.
func (d *DB) Codes() []string {
	codes := make([]string, 0, len(d.cidrs))
	for code := range d.cidrs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
