package bitbucket

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/httpx"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const pageLimit = 50

// Client lists merged pull requests from a Bitbucket Server instance.
type Client struct {
	api    *httpx.Client
	logger *logger.Logger
}

func NewClient(api *httpx.Client, logger *logger.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger.Component("upstream/bitbucket"),
	}
}

// FetchMergedChanges pages through every merged pull request of repo and keeps
// the ones whose target branch display name ends with "/"+targetBranch and
// whose merge time lies in [from, to]. Pages are read until the server
// reports the last page or returns an empty one. Any failure aborts the fetch.
func (c *Client) FetchMergedChanges(
	ctx context.Context,
	repo domain.RepoRef,
	targetBranch string,
	from, to time.Time,
) ([]domain.Change, error) {
	path := fmt.Sprintf("/rest/api/1.0/projects/%s/repos/%s/pull-requests",
		url.PathEscape(repo.ProjectKey), url.PathEscape(repo.Slug))
	suffix := "/" + targetBranch

	changes := make([]domain.Change, 0)
	start, pages := 0, 0
	for {
		query := url.Values{}
		query.Set("state", "MERGED")
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(pageLimit))

		var page pullRequestPage
		if err := c.api.GetJSON(ctx, path, query, &page); err != nil {
			return nil, fmt.Errorf("list merged pull requests for %s at start %d: %w", repo, start, err)
		}
		pages++

		for _, pr := range page.Values {
			mergedAt, ok := pr.mergedAt()
			if !ok {
				continue
			}
			if !strings.HasSuffix(pr.ToRef.DisplayID, suffix) {
				continue
			}
			if mergedAt.Before(from) || mergedAt.After(to) {
				continue
			}
			changes = append(changes, c.toChange(repo, pr, mergedAt))
		}

		if page.IsLastPage || len(page.Values) == 0 {
			break
		}
		if page.NextPageStart != nil && *page.NextPageStart > start {
			start = *page.NextPageStart
		} else {
			start += pageLimit
		}
	}

	c.logger.Info("fetched merged pull requests",
		"repo", repo.String(),
		"target_branch", targetBranch,
		"pages", pages,
		"matched", len(changes),
	)

	return changes, nil
}

func (c *Client) toChange(repo domain.RepoRef, pr pullRequest, mergedAt time.Time) domain.Change {
	link := ""
	if len(pr.Links.Self) > 0 {
		link = pr.Links.Self[0].Href
	}
	if link == "" {
		link = fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests/%d",
			c.api.BaseURL(), repo.ProjectKey, repo.Slug, pr.ID)
	}

	return domain.Change{
		ID:           pr.ID,
		Title:        pr.Title,
		SourceBranch: pr.FromRef.DisplayID,
		TargetBranch: pr.ToRef.DisplayID,
		MergedAt:     mergedAt,
		MergedBy:     pr.mergedBy(),
		URL:          link,
	}
}
