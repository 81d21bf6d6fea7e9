package rules

// Stats summarizes one pass over a list of rule lines.
type Stats struct {
	Total     int `json:"total"`
	Empty     int `json:"empty"`
	Duplicate int `json:"duplicate"`
	Valid     int `json:"valid"`
}

// Collect computes Stats in a single left-to-right pass. The first
// occurrence of a value counts as valid, repeats count as duplicate, so
// Valid+Duplicate+Empty always equals Total.
func Collect(lines []string) Stats {
	s := Stats{Total: len(lines)}
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		switch {
		case line == "":
			s.Empty++
		default:
			if _, ok := seen[line]; ok {
				s.Duplicate++
				continue
			}
			seen[line] = struct{}{}
			s.Valid++
		}
	}
	return s
}

// Validated is the outcome of checking one source's lines against a type.
type Validated struct {
	Type      Type
	Rules     []string
	Invalid   int
	Duplicate int
}

// Validate filters lines through the validator for t and pairs the
// survivors with counts of what was dropped.
func Validate(lines []string, t Type) Validated {
	valid := FilterValid(lines, t)
	return Validated{
		Type:      t,
		Rules:     valid,
		Invalid:   len(lines) - len(valid),
		Duplicate: Collect(lines).Duplicate,
	}
}
