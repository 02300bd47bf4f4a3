package voice

import (
	"fmt"
	"strconv"
	"strings"
)

// spokenDuration turns an ISO8601 duration such as PT5H30M into "5h 30m".
// Only day, hour and minute designators are accepted; a missing hour renders
// minutes only.
func spokenDuration(s string) (string, error) {
	rest, ok := strings.CutPrefix(s, "P")
	if !ok || rest == "" {
		return "", fmt.Errorf("malformed duration %q", s)
	}

	var parts []string
	var num strings.Builder
	inTime := false
	for _, r := range rest {
		if r >= '0' && r <= '9' {
			num.WriteRune(r)
			continue
		}
		if r == 'T' {
			if inTime || num.Len() > 0 {
				return "", fmt.Errorf("malformed duration %q", s)
			}
			inTime = true
			continue
		}
		if num.Len() == 0 {
			return "", fmt.Errorf("malformed duration %q", s)
		}
		v, err := strconv.Atoi(num.String())
		if err != nil {
			return "", fmt.Errorf("malformed duration %q: %w", s, err)
		}
		num.Reset()
		switch {
		case r == 'D' && !inTime:
			parts = append(parts, strconv.Itoa(v)+"d")
		case r == 'H' && inTime:
			parts = append(parts, strconv.Itoa(v)+"h")
		case r == 'M' && inTime:
			parts = append(parts, strconv.Itoa(v)+"m")
		default:
			return "", fmt.Errorf("unsupported duration designator %q in %q", r, s)
		}
	}
	if num.Len() > 0 || len(parts) == 0 {
		return "", fmt.Errorf("malformed duration %q", s)
	}
	return strings.Join(parts, " "), nil
}
