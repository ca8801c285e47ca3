package domain

import "time"

const (
	RelationshipRequiredBy = "required by" // direct parent epic
	RelationshipRelated    = "related"     // the parent epic's own epic
)

type RepoRef struct {
	ProjectKey string `json:"projectKey"`
	Slug       string `json:"slug"`
}

// String returns the "PROJECT/slug" identifier used in summaries and logs.
func (r RepoRef) String() string {
	return r.ProjectKey + "/" + r.Slug
}

// Change is a merged pull request targeting the release branch.
type Change struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	SourceBranch string    `json:"sourceBranch"`
	TargetBranch string    `json:"targetBranch"`
	MergedAt     time.Time `json:"mergedAt"`
	MergedBy     *string   `json:"mergedBy"`
	URL          string    `json:"url"`
}

type Ticket struct {
	Key          string        `json:"key"`
	Summary      string        `json:"summary"`
	Status       string        `json:"status"`
	Assignee     *string       `json:"assignee"`
	URL          string        `json:"url"`
	RelatedEpics []RelatedEpic `json:"relatedEpics"`
}

type RelatedEpic struct {
	Key          string  `json:"key"`
	Summary      *string `json:"summary"`
	URL          *string `json:"url"`
	Relationship string  `json:"relationship"`
}

// TrackerRecord is the raw shape returned by the ticket tracker before epic
// resolution. ParentKey is the value of the parent-epic field, empty if unset.
type TrackerRecord struct {
	Key       string
	Summary   string
	Status    string
	Assignee  *string
	URL       string
	ParentKey string
}

// Story groups one resolved ticket with the branches and changes of a single
// repository that reference it.
type Story struct {
	Ticket         Ticket   `json:"issue"`
	Repo           RepoRef  `json:"repo"`
	SourceBranches []string `json:"sourceBranches"`
	Changes        []Change `json:"pullRequests"`
}

type ReportSummary struct {
	TotalStories    int            `json:"totalStories"`
	RepoBreakdown   map[string]int `json:"repoBreakdown"`
	StatusBreakdown map[string]int `json:"statusBreakdown"`
}

type Report struct {
	ReleaseBranch string        `json:"releaseBranch"`
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	GeneratedAt   time.Time     `json:"generatedAt"`
	Stories       []Story       `json:"stories"`
	Summary       ReportSummary `json:"summary"`
}

// ArchivedReport is a summary row of a previously generated report.
type ArchivedReport struct {
	ID            int64     `json:"id"`
	ReleaseBranch string    `json:"releaseBranch"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Repos         []string  `json:"repos"`
	StoryCount    int       `json:"storyCount"`
}
