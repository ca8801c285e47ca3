package main

import (
	"errors"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/export"
	"github.com/spf13/pflag"
	"strings"
	"time"
)

const (
	defaultDays = 7
	dateLayout  = "2006-01-02"
)

type options struct {
	repos   []string
	release string
	from    string
	to      string
	days    int
	format  string
	out     string
	archive bool
	help    bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("changelog", pflag.ContinueOnError)
	flagSet.StringArrayVarP(&opts.repos, "repo", "r", nil, "repository as PROJECT/slug, repeatable (default: configured repositories)")
	flagSet.StringVar(&opts.release, "release", "", "release branch, e.g. release/2025-09 (default: DEFAULT_RELEASE_BRANCH)")
	flagSet.StringVar(&opts.from, "from", "", "window start, RFC 3339 or YYYY-MM-DD")
	flagSet.StringVar(&opts.to, "to", "", "window end, RFC 3339 or YYYY-MM-DD (default: now)")
	flagSet.IntVar(&opts.days, "days", defaultDays, "window length in days when --from is not given")
	flagSet.StringVarP(&opts.format, "format", "f", string(export.FormatMarkdown), "output format: json, markdown or html")
	flagSet.StringVarP(&opts.out, "out", "o", "", "write the report to this file instead of stdout")
	flagSet.BoolVar(&opts.archive, "archive", false, "store the report in the archive when ARCHIVE_ENABLED is set")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")
	return flagSet
}

// buildRequest turns flags into a report request. Configured values fill in
// what the flags leave out.
func (o *options) buildRequest(defaultRepos []domain.RepoRef, defaultRelease string, now time.Time) (domain.BuildReportRequest, error) {
	var req domain.BuildReportRequest

	repos, err := parseRepos(o.repos)
	if err != nil {
		return req, err
	}
	if len(repos) == 0 {
		repos = defaultRepos
	}
	if len(repos) == 0 {
		return req, errors.New("no repositories given: pass --repo or set REPOSITORIES")
	}

	release := o.release
	if release == "" {
		release = defaultRelease
	}

	to := now.UTC()
	if o.to != "" {
		if to, err = parseTime(o.to, true); err != nil {
			return req, fmt.Errorf("--to: %w", err)
		}
	}

	var from time.Time
	switch {
	case o.from != "":
		if from, err = parseTime(o.from, false); err != nil {
			return req, fmt.Errorf("--from: %w", err)
		}
	case o.days > 0:
		from = to.AddDate(0, 0, -o.days)
	default:
		return req, fmt.Errorf("--days must be positive, got %d", o.days)
	}

	return domain.BuildReportRequest{
		Repos:         repos,
		ReleaseBranch: release,
		From:          from,
		To:            to,
	}, nil
}

func parseRepos(values []string) ([]domain.RepoRef, error) {
	var repos []domain.RepoRef
	for _, value := range values {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			projectKey, slug, found := strings.Cut(entry, "/")
			if !found || projectKey == "" || slug == "" || strings.Contains(slug, "/") {
				return nil, fmt.Errorf("repository %q must be in PROJECT/slug form", entry)
			}
			repos = append(repos, domain.RepoRef{ProjectKey: projectKey, Slug: slug})
		}
	}
	return repos, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare end date covers the whole
// day.
func parseTime(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", value)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
