// Package assets carries the embedded default gallery content: the rules
// file, the canned stall-owner lines and the intro manifesto.
package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed rules.yaml fallback_lines.txt manifesto.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// RulesYAML returns the raw default rules document.
func RulesYAML() ([]byte, error) {
	return FS.ReadFile("rules.yaml")
}

// FallbackLines returns the canned lines used when commentary generation fails.
func FallbackLines() ([]string, error) {
	return readLines("fallback_lines.txt")
}

// Manifesto returns the intro text, joined into a single paragraph.
func Manifesto() (string, error) {
	lines, err := readLines("manifesto.txt")
	if err != nil {
		return "", err
	}
	return strings.Join(lines, " "), nil
}
