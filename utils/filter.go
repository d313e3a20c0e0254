package utils

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Excluder reports whether a class, by internal name, is left out.
type Excluder func(name string) bool

// ExcluderFor compiles patterns into one Excluder matching any of them. An
// entry of the form @path is replaced by the patterns listed in that file.
// No patterns yields nil, which callers treat as excluding nothing.
func ExcluderFor(patterns []string) (Excluder, error) {
	var expanded []string
	for _, p := range patterns {
		if path, ok := strings.CutPrefix(p, "@"); ok {
			listed, err := ReadPatternFile(path)
			if err != nil {
				return nil, err
			}
			expanded = append(expanded, listed...)
			continue
		}
		expanded = append(expanded, p)
	}
	if len(expanded) == 0 {
		return nil, nil
	}

	exprs := make([]*regexp.Regexp, 0, len(expanded))
	for _, p := range expanded {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		exprs = append(exprs, re)
	}
	return func(name string) bool {
		for _, re := range exprs {
			if re.MatchString(name) {
				return true
			}
		}
		return false
	}, nil
}

// ReadPatternFile reads one pattern per line, skipping blank lines and
// lines starting with # or //.
func ReadPatternFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return patterns, nil
}
