package device

import (
	"fmt"
	"strings"
)

// ExcludedPorts lists virtual/system MIDI ports that are never picked
// automatically.
var ExcludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// pickPort chooses the first name containing pattern, case-insensitively.
// With an empty pattern it takes the only usable port, if there is exactly
// one.
func pickPort(names []string, pattern string) (string, error) {
	var usable []string
	for _, name := range names {
		excluded := false
		for _, pat := range ExcludedPorts {
			if containsCI(name, pat) {
				excluded = true
				break
			}
		}
		if !excluded {
			usable = append(usable, name)
		}
	}
	if pattern != "" {
		for _, name := range usable {
			if containsCI(name, pattern) {
				return name, nil
			}
		}
		return "", fmt.Errorf("no MIDI output matches %q (available: %s)", pattern, strings.Join(usable, ", "))
	}
	if len(usable) == 1 {
		return usable[0], nil
	}
	return "", fmt.Errorf("%d MIDI outputs available, pick one by name: %s", len(usable), strings.Join(usable, ", "))
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
