package service

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTicketProjects are the tracker projects whose keys are recognised in
// branch names.
var DefaultTicketProjects = []string{"MBCS", "MBBO", "MBOS", "MBSS"}

var (
	branchPrefixes = []string{"feature/", "bugfix/"}
	projectPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// KeyExtractor derives ticket keys from branch names such as
// "feature/MBSS-123-login-page".
type KeyExtractor struct {
	pattern *regexp.Regexp
}

func NewKeyExtractor(projects []string) (*KeyExtractor, error) {
	if len(projects) == 0 {
		projects = DefaultTicketProjects
	}

	alternatives := make([]string, 0, len(projects))
	for _, project := range projects {
		if !projectPattern.MatchString(project) {
			return nil, fmt.Errorf("invalid ticket project %q", project)
		}
		alternatives = append(alternatives, strings.ToUpper(project))
	}

	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)-\d+\b`)
	if err != nil {
		return nil, fmt.Errorf("compile ticket key pattern: %w", err)
	}
	return &KeyExtractor{pattern: pattern}, nil
}

// Extract returns the distinct upper-cased keys of branch in first-seen order.
// Only feature/ and bugfix/ branches are scanned. The segment right after the
// prefix is searched first; the whole name is searched only if it has none.
func (e *KeyExtractor) Extract(branch string) []string {
	if !hasAllowedPrefix(branch) {
		return nil
	}

	var keys []string
	if parts := strings.Split(branch, "/"); len(parts) >= 2 {
		keys = e.scan(parts[1])
	}
	if len(keys) == 0 {
		keys = e.scan(branch)
	}
	return keys
}

func (e *KeyExtractor) scan(text string) []string {
	matches := e.pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, match := range matches {
		key := strings.ToUpper(match)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func hasAllowedPrefix(branch string) bool {
	for _, prefix := range branchPrefixes {
		if strings.HasPrefix(branch, prefix) {
			return true
		}
	}
	return false
}
