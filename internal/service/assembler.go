package service

import (
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
)

// ReportAssembler turns one repository's changes into stories and tallies
// the report summary.
type ReportAssembler struct {
	keys   *KeyExtractor
	logger *logger.Logger
}

func NewReportAssembler(keys *KeyExtractor, logger *logger.Logger) *ReportAssembler {
	return &ReportAssembler{
		keys:   keys,
		logger: logger.Component("service/assembler"),
	}
}

type storyDraft struct {
	branches []string
	seen     map[string]bool
	changes  []domain.Change
}

// Assemble groups changes by ticket key. One story is emitted per resolved
// key, in the order keys are first met. Keys missing from tickets are skipped
// and their changes stay unreported.
func (a *ReportAssembler) Assemble(repo domain.RepoRef, changes []domain.Change, tickets map[string]domain.Ticket) []domain.Story {
	var order []string
	drafts := make(map[string]*storyDraft)

	for _, change := range changes {
		for _, key := range a.keys.Extract(change.SourceBranch) {
			draft, ok := drafts[key]
			if !ok {
				draft = &storyDraft{seen: make(map[string]bool)}
				drafts[key] = draft
				order = append(order, key)
			}
			draft.changes = append(draft.changes, change)
			if !draft.seen[change.SourceBranch] {
				draft.seen[change.SourceBranch] = true
				draft.branches = append(draft.branches, change.SourceBranch)
			}
		}
	}

	stories := make([]domain.Story, 0, len(order))
	for _, key := range order {
		ticket, ok := tickets[key]
		if !ok {
			draft := drafts[key]
			a.logger.Warn("ticket not resolved, changes left out of report",
				"repo", repo.String(),
				"ticket", key,
				"changes", len(draft.changes),
			)
			continue
		}

		draft := drafts[key]
		stories = append(stories, domain.Story{
			Ticket:         ticket,
			Repo:           repo,
			SourceBranches: draft.branches,
			Changes:        draft.changes,
		})
	}

	a.logger.Debug("stories assembled",
		"repo", repo.String(),
		"changes", len(changes),
		"keys", len(order),
		"stories", len(stories),
	)

	return stories
}

// Summarize counts stories per repository and per ticket status. Every
// requested repository has an entry, zero if it produced no stories.
func (a *ReportAssembler) Summarize(stories []domain.Story, repos []domain.RepoRef) domain.ReportSummary {
	summary := domain.ReportSummary{
		TotalStories:    len(stories),
		RepoBreakdown:   make(map[string]int, len(repos)),
		StatusBreakdown: make(map[string]int),
	}

	for _, repo := range repos {
		summary.RepoBreakdown[repo.String()] = 0
	}
	for _, story := range stories {
		summary.RepoBreakdown[story.Repo.String()]++
		summary.StatusBreakdown[story.Ticket.Status]++
	}

	return summary
}
