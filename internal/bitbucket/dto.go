package bitbucket

import "time"

// Bitbucket Server REST 1.0 payloads. Timestamps are epoch milliseconds.

type pullRequestPage struct {
	Values        []pullRequest `json:"values"`
	Size          int           `json:"size"`
	Limit         int           `json:"limit"`
	IsLastPage    bool          `json:"isLastPage"`
	Start         int           `json:"start"`
	NextPageStart *int          `json:"nextPageStart"`
}

type pullRequest struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	State       string       `json:"state"`
	UpdatedDate *int64       `json:"updatedDate"`
	ClosedDate  *int64       `json:"closedDate"`
	FromRef     ref          `json:"fromRef"`
	ToRef       ref          `json:"toRef"`
	Author      *participant `json:"author"`
	Links       links        `json:"links"`
}

type ref struct {
	ID        string `json:"id"`
	DisplayID string `json:"displayId"`
}

type participant struct {
	User user `json:"user"`
}

type user struct {
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

type links struct {
	Self []link `json:"self"`
}

type link struct {
	Href string `json:"href"`
}

// mergedAt is the pull request's updatedDate; closedDate is ignored. A pull
// request without updatedDate has no merge time and is never reported.
func (pr pullRequest) mergedAt() (time.Time, bool) {
	if pr.UpdatedDate == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*pr.UpdatedDate).UTC(), true
}

func (pr pullRequest) mergedBy() *string {
	if pr.Author == nil || pr.Author.User.EmailAddress == "" {
		return nil
	}
	email := pr.Author.User.EmailAddress
	return &email
}
