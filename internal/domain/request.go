package domain

import (
	"fmt"
	. "github.com/go-ozzo/ozzo-validation"
	"regexp"
	"time"
)

const (
	MaxReposPerReport = 10
	MaxReportWindow   = 90 * 24 * time.Hour
)

var releaseBranchPattern = regexp.MustCompile(`^release/\d{4}-\d{2}$`)

type BuildReportRequest struct {
	Repos         []RepoRef `json:"repos"`
	ReleaseBranch string    `json:"releaseBranch"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}

// Validate checks the request against report policy. It never touches the
// network; a failure is returned as *ValidationError.
func (r BuildReportRequest) Validate() error {
	err := ValidateStruct(&r,
		Field(&r.Repos,
			Required.Error("at least one repository must be specified"),
			Length(1, MaxReposPerReport).Error(fmt.Sprintf("maximum %d repositories allowed", MaxReposPerReport)),
			By(distinctRepos),
		),
		Field(&r.ReleaseBranch,
			Required.Error("release branch is required"),
			Match(releaseBranchPattern).Error("release branch must match format 'release/YYYY-MM'"),
		),
		Field(&r.From, Required.Error("from date is required")),
		Field(&r.To, Required.Error("to date is required"), By(r.validateWindow)),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func (r BuildReportRequest) validateWindow(value interface{}) error {
	to, ok := value.(time.Time)
	if !ok {
		return fmt.Errorf("to must be a timestamp")
	}
	if r.From.IsZero() {
		return nil
	}
	if !r.From.Before(to) {
		return fmt.Errorf("from date must be before to date")
	}
	if to.Sub(r.From) > MaxReportWindow {
		return fmt.Errorf("date range cannot exceed %d days", int(MaxReportWindow.Hours()/24))
	}
	return nil
}

func distinctRepos(value interface{}) error {
	repos, ok := value.([]RepoRef)
	if !ok {
		return nil
	}
	seen := make(map[RepoRef]bool, len(repos))
	for _, repo := range repos {
		if seen[repo] {
			return fmt.Errorf("repository %s is listed more than once", repo)
		}
		seen[repo] = true
	}
	return nil
}

func (r RepoRef) Validate() error {
	return ValidateStruct(&r,
		Field(&r.ProjectKey, Required),
		Field(&r.Slug, Required),
	)
}
