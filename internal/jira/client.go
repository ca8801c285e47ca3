package jira

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/httpx"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"net/url"
	"strings"
)

const (
	DefaultEpicLinkField = "customfield_10371"
	DefaultPmEpicField   = "customfield_12272"
)

type Config struct {
	// EpicLinkField holds a ticket's direct parent epic.
	EpicLinkField string
	// PmEpicField holds an epic's own parent epic.
	PmEpicField string
}

// Client reads tickets and epics from Jira REST API v2.
type Client struct {
	api           *httpx.Client
	epicLinkField string
	pmEpicField   string
	logger        *logger.Logger
}

func NewClient(api *httpx.Client, cfg Config, logger *logger.Logger) *Client {
	if cfg.EpicLinkField == "" {
		cfg.EpicLinkField = DefaultEpicLinkField
	}
	if cfg.PmEpicField == "" {
		cfg.PmEpicField = DefaultPmEpicField
	}
	return &Client{
		api:           api,
		epicLinkField: cfg.EpicLinkField,
		pmEpicField:   cfg.PmEpicField,
		logger:        logger.Component("upstream/jira"),
	}
}

// SearchTickets loads all keys with a single search call. Keys unknown to Jira
// are missing from the result. ParentKey is the epic link field.
func (c *Client) SearchTickets(ctx context.Context, keys []string) ([]domain.TrackerRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = "'" + key + "'"
	}

	req := searchRequest{
		JQL:        fmt.Sprintf("key IN (%s)", strings.Join(quoted, ",")),
		Fields:     []string{"summary", "status", "assignee", "description", c.epicLinkField},
		StartAt:    0,
		MaxResults: len(keys),
	}

	var resp searchResponse
	if err := c.api.PostJSON(ctx, "/rest/api/2/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}

	if resp.Total > len(resp.Issues) {
		c.logger.Warn("search returned a partial result",
			"requested", len(keys),
			"total", resp.Total,
			"returned", len(resp.Issues),
		)
	}

	records := make([]domain.TrackerRecord, 0, len(resp.Issues))
	for _, item := range resp.Issues {
		record, err := c.toRecord(item, c.epicLinkField)
		if err != nil {
			return nil, fmt.Errorf("decode ticket: %w", err)
		}
		records = append(records, record)
	}

	c.logger.Debug("tickets loaded", "requested", len(keys), "found", len(records))
	return records, nil
}

// FetchEpic loads one epic's summary. ParentKey is the PM epic field.
func (c *Client) FetchEpic(ctx context.Context, key string) (domain.TrackerRecord, error) {
	query := url.Values{}
	query.Set("fields", "summary,"+c.pmEpicField)

	var item issue
	if err := c.api.GetJSON(ctx, "/rest/api/2/issue/"+url.PathEscape(key), query, &item); err != nil {
		return domain.TrackerRecord{}, fmt.Errorf("fetch epic %s: %w", key, err)
	}
	if item.Key == "" {
		item.Key = key
	}

	record, err := c.toRecord(item, c.pmEpicField)
	if err != nil {
		return domain.TrackerRecord{}, fmt.Errorf("decode epic: %w", err)
	}
	return record, nil
}

// BrowseURL is the human link to a ticket.
func (c *Client) BrowseURL(key string) string {
	return c.api.BaseURL() + "/browse/" + key
}

func (c *Client) toRecord(item issue, parentField string) (domain.TrackerRecord, error) {
	summary, err := item.stringField("summary")
	if err != nil {
		return domain.TrackerRecord{}, err
	}
	statusName, err := item.statusName()
	if err != nil {
		return domain.TrackerRecord{}, err
	}
	assignee, err := item.assignee()
	if err != nil {
		return domain.TrackerRecord{}, err
	}

	return domain.TrackerRecord{
		Key:       item.Key,
		Summary:   summary,
		Status:    statusName,
		Assignee:  assignee,
		URL:       c.BrowseURL(item.Key),
		ParentKey: item.linkedKey(parentField),
	}, nil
}
