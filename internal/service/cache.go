package service

import "github.com/ZertGraf/changelog-builder/internal/domain"

// TicketCache holds what one report generation has already resolved. A fresh
// cache is created for every report and dropped with it; it has no eviction
// and is not safe for concurrent use.
type TicketCache struct {
	tickets map[string]domain.Ticket
	epics   map[string]epicLookup
}

// epicLookup memoises an epic fetch, including a failed one, so that tickets
// sharing an epic cost one upstream call.
type epicLookup struct {
	record domain.TrackerRecord
	ok     bool
}

func NewTicketCache() *TicketCache {
	return &TicketCache{
		tickets: make(map[string]domain.Ticket),
		epics:   make(map[string]epicLookup),
	}
}

func (c *TicketCache) Get(key string) (domain.Ticket, bool) {
	ticket, ok := c.tickets[key]
	return ticket, ok
}

func (c *TicketCache) Set(key string, ticket domain.Ticket) {
	c.tickets[key] = ticket
}

func (c *TicketCache) Len() int {
	return len(c.tickets)
}
