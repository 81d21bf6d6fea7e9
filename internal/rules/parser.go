// Package rules parses plain-text rule sources and validates rule lines
// against their declared type.
package rules

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ParseFile reads a rule source file and returns its rule lines in file
// order. A missing file yields an empty result with a warning, not an error.
func ParseFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnf("source file not found: %s", path)
		} else {
			log.Warnf("read source %s: %v", path, err)
		}
		return nil
	}
	return ParseLines(string(data))
}

// ParseLines splits content into trimmed rule lines, dropping blanks and
// comments. Comments start with "#" or "//".
func ParseLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}
