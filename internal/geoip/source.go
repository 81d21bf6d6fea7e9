package geoip

import (
	"fmt"
	"strings"
	"time"
)

// RenderSource formats CIDRs as a generated ip-cidr rule source file, with
// a comment header recording the code and where the data came from.
func RenderSource(code, origin string, cidrs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# GeoIP %s, generated %s\n", code, time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "# origin: %s\n", origin)
	for _, cidr := range cidrs {
		b.WriteString(cidr)
		b.WriteByte('\n')
	}
	return b.String()
}
