package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func epicKeys(epics []domain.RelatedEpic) [][2]string {
	out := make([][2]string, len(epics))
	for i, epic := range epics {
		out[i] = [2]string{epic.Key, epic.Relationship}
	}
	return out
}

func TestResolve_TwoLevelEpicChain(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-100", "Done", "MBSS-1")
	tracker.addEpic("MBSS-1", "MBSS-0")
	tracker.addEpic("MBSS-0", "MBSS-MINUS")

	resolver := NewTicketResolver(tracker, logger.Discard())
	tickets, err := resolver.Resolve(context.Background(), NewTicketCache(), []string{"MBSS-100"})
	require.NoError(t, err)

	ticket, ok := tickets["MBSS-100"]
	require.True(t, ok)
	assert.Equal(t, [][2]string{
		{"MBSS-1", domain.RelationshipRequiredBy},
		{"MBSS-0", domain.RelationshipRelated},
	}, epicKeys(ticket.RelatedEpics))

	require.NotNil(t, ticket.RelatedEpics[0].Summary)
	assert.Equal(t, "epic MBSS-1", *ticket.RelatedEpics[0].Summary)
	require.NotNil(t, ticket.RelatedEpics[1].URL)
	assert.Equal(t, "https://jira.example.com/browse/MBSS-0", *ticket.RelatedEpics[1].URL)

	// the depth-2 epic's own parent is never followed
	assert.Equal(t, []string{"MBSS-1", "MBSS-0"}, tracker.epicCalls)
}

func TestResolve_SecondLevelFailureDegrades(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-100", "Done", "MBSS-1")
	tracker.addEpic("MBSS-1", "MBSS-0")
	tracker.failEpics["MBSS-0"] = true

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBSS-100"})
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"MBSS-1", domain.RelationshipRequiredBy}}, epicKeys(tickets["MBSS-100"].RelatedEpics))
}

func TestResolve_FirstLevelFailureDropsChain(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-100", "Done", "MBSS-1")
	tracker.failEpics["MBSS-1"] = true

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBSS-100"})
	require.NoError(t, err)

	require.Contains(t, tickets, "MBSS-100")
	assert.Empty(t, tickets["MBSS-100"].RelatedEpics)
}

func TestResolve_NoEpic(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBBO-3", "Open", "")

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBBO-3"})
	require.NoError(t, err)

	assert.NotNil(t, tickets["MBBO-3"].RelatedEpics)
	assert.Empty(t, tickets["MBBO-3"].RelatedEpics)
	assert.Empty(t, tracker.epicCalls)
}

func TestResolve_MissingKeyIsAbsent(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-1", "Done", "")

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBSS-1", "MBSS-404"})
	require.NoError(t, err)

	assert.Len(t, tickets, 1)
	assert.NotContains(t, tickets, "MBSS-404")
}

func TestResolve_SearchFailureIsFatal(t *testing.T) {
	tracker := newFakeTracker()
	tracker.searchErr = errors.New("HTTP 503")

	_, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBSS-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestResolve_UsesCache(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-1", "Done", "")
	tracker.addTicket("MBSS-2", "Done", "")

	resolver := NewTicketResolver(tracker, logger.Discard())
	cache := NewTicketCache()

	_, err := resolver.Resolve(context.Background(), cache, []string{"MBSS-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	tickets, err := resolver.Resolve(context.Background(), cache, []string{"MBSS-1", "MBSS-2", "MBSS-2"})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	require.Len(t, tracker.searchCalls, 2)
	assert.Equal(t, []string{"MBSS-2"}, tracker.searchCalls[1], "cached key must not be searched again")

	_, err = resolver.Resolve(context.Background(), cache, []string{"MBSS-1", "MBSS-2"})
	require.NoError(t, err)
	assert.Len(t, tracker.searchCalls, 2, "fully cached request makes no call")
}

func TestResolve_SharedEpicFetchedOnce(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-10", "Done", "MBSS-1")
	tracker.addTicket("MBSS-11", "Done", "MBSS-1")
	tracker.addEpic("MBSS-1", "")

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), []string{"MBSS-10", "MBSS-11"})
	require.NoError(t, err)

	assert.Len(t, tickets["MBSS-10"].RelatedEpics, 1)
	assert.Len(t, tickets["MBSS-11"].RelatedEpics, 1)
	assert.Equal(t, []string{"MBSS-1"}, tracker.epicCalls)
}

func TestResolve_EmptyKeysMakesNoCall(t *testing.T) {
	tracker := newFakeTracker()

	tickets, err := NewTicketResolver(tracker, logger.Discard()).
		Resolve(context.Background(), NewTicketCache(), nil)
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, tracker.searchCalls)
}

func TestResolve_Cancelled(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addTicket("MBSS-1", "Done", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTicketResolver(tracker, logger.Discard()).Resolve(ctx, NewTicketCache(), []string{"MBSS-1"})
	require.ErrorIs(t, err, context.Canceled)
}
