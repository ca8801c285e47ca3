package service

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
)

// maxEpicDepth bounds the parent chain walk: the direct epic ("required by")
// and that epic's own epic ("related"). Deeper parents are never followed.
const maxEpicDepth = 2

// TicketSource is the tracker as seen by the resolver.
type TicketSource interface {
	// SearchTickets loads many tickets in one call. ParentKey is the direct epic.
	SearchTickets(ctx context.Context, keys []string) ([]domain.TrackerRecord, error)
	// FetchEpic loads one epic. ParentKey is the epic's own parent epic.
	FetchEpic(ctx context.Context, key string) (domain.TrackerRecord, error)
}

type TicketResolver struct {
	source TicketSource
	logger *logger.Logger
}

func NewTicketResolver(source TicketSource, logger *logger.Logger) *TicketResolver {
	return &TicketResolver{
		source: source,
		logger: logger.Component("service/resolver"),
	}
}

// Resolve maps keys to tickets. Keys the tracker does not know are absent from
// the result. A failed batch search is returned as an error; a failed epic
// lookup only truncates that ticket's epic list.
func (r *TicketResolver) Resolve(ctx context.Context, cache *TicketCache, keys []string) (map[string]domain.Ticket, error) {
	result := make(map[string]domain.Ticket, len(keys))

	var uncached []string
	queued := make(map[string]bool, len(keys))
	for _, key := range keys {
		if ticket, ok := cache.Get(key); ok {
			result[key] = ticket
			continue
		}
		if !queued[key] {
			queued[key] = true
			uncached = append(uncached, key)
		}
	}

	fetched := 0
	if len(uncached) > 0 {
		records, err := r.source.SearchTickets(ctx, uncached)
		if err != nil {
			return nil, fmt.Errorf("search %d tickets: %w", len(uncached), err)
		}

		for _, record := range records {
			ticket := domain.Ticket{
				Key:          record.Key,
				Summary:      record.Summary,
				Status:       record.Status,
				Assignee:     record.Assignee,
				URL:          record.URL,
				RelatedEpics: r.resolveEpics(ctx, cache, record),
			}
			cache.Set(record.Key, ticket)
			result[record.Key] = ticket
			fetched++
		}

		// epic lookups swallow their errors, cancellation must still abort
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	r.logger.Info("tickets resolved",
		"requested", len(keys),
		"from_cache", len(keys)-len(uncached),
		"fetched", fetched,
		"missing", len(uncached)-fetched,
	)

	return result, nil
}

func (r *TicketResolver) resolveEpics(ctx context.Context, cache *TicketCache, ticket domain.TrackerRecord) []domain.RelatedEpic {
	epics := make([]domain.RelatedEpic, 0, maxEpicDepth)

	parent := ticket.ParentKey
	for depth := 1; depth <= maxEpicDepth && parent != ""; depth++ {
		epic, ok := r.lookupEpic(ctx, cache, ticket.Key, parent)
		if !ok {
			break
		}
		epics = append(epics, relatedEpic(parent, epic, relationshipAt(depth)))
		parent = epic.ParentKey
	}

	return epics
}

func (r *TicketResolver) lookupEpic(ctx context.Context, cache *TicketCache, ticketKey, epicKey string) (domain.TrackerRecord, bool) {
	if cached, ok := cache.epics[epicKey]; ok {
		return cached.record, cached.ok
	}

	epic, err := r.source.FetchEpic(ctx, epicKey)
	if err != nil {
		r.logger.Warn("epic lookup failed, relationship omitted",
			"ticket", ticketKey,
			"epic", epicKey,
			"error", err,
		)
		cache.epics[epicKey] = epicLookup{}
		return domain.TrackerRecord{}, false
	}

	cache.epics[epicKey] = epicLookup{record: epic, ok: true}
	return epic, true
}

func relationshipAt(depth int) string {
	if depth == 1 {
		return domain.RelationshipRequiredBy
	}
	return domain.RelationshipRelated
}

func relatedEpic(key string, epic domain.TrackerRecord, relationship string) domain.RelatedEpic {
	related := domain.RelatedEpic{Key: key, Relationship: relationship}
	if epic.Summary != "" {
		summary := epic.Summary
		related.Summary = &summary
	}
	if epic.URL != "" {
		link := epic.URL
		related.URL = &link
	}
	return related
}
