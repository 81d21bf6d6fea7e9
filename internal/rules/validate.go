package rules

import (
	"net/netip"
	"regexp"
	"strings"
)

// Type identifies a rule category understood by the pipeline.
type Type string

const (
	TypeDomainSuffix Type = "domain-suffix"
	TypeIPCIDR       Type = "ip-cidr"
	TypeProcessName  Type = "process-name"
)

var (
	// domainPattern matches hostnames label by label: 1-63 alphanumeric or
	// hyphen characters per label, no leading or trailing hyphen.
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

	// processPattern matches bare executable names, no path separators.
	processPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// IsValidDomainSuffix reports whether s is usable as a domain-suffix rule.
// A single leading dot is stripped before matching.
func IsValidDomainSuffix(s string) bool {
	s = strings.TrimPrefix(s, ".")
	return domainPattern.MatchString(s)
}

// IsValidIPCIDR reports whether s is a syntactically valid IPv4 or IPv6
// prefix with an in-range length. Bare addresses without a "/len" suffix
// are rejected.
func IsValidIPCIDR(s string) bool {
	_, err := netip.ParsePrefix(s)
	return err == nil
}

// IsValidProcessName reports whether s is usable as a process-name rule.
func IsValidProcessName(s string) bool {
	return processPattern.MatchString(s)
}

// Valid reports whether line passes the validator for t. Unknown types
// accept everything, so new rule types flow through untouched.
func Valid(line string, t Type) bool {
	switch t {
	case TypeDomainSuffix:
		return IsValidDomainSuffix(line)
	case TypeIPCIDR:
		return IsValidIPCIDR(line)
	case TypeProcessName:
		return IsValidProcessName(line)
	default:
		return true
	}
}

// FilterValid returns the lines passing the validator for t, preserving
// order and duplicates.
func FilterValid(lines []string, t Type) []string {
	var out []string
	for _, line := range lines {
		if Valid(line, t) {
			out = append(out, line)
		}
	}
	return out
}
