package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/ZertGraf/changelog-builder/internal/repository"
	"golang.org/x/sync/errgroup"
	"sort"
	"time"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ChangeSource lists merged changes of one repository.
type ChangeSource interface {
	FetchMergedChanges(ctx context.Context, repo domain.RepoRef, targetBranch string, from, to time.Time) ([]domain.Change, error)
}

type ChangelogService struct {
	changes   ChangeSource
	resolver  *TicketResolver
	assembler *ReportAssembler
	archive   repository.ReportRepository
	logger    *logger.Logger
	now       func() time.Time
}

// NewChangelogService wires the pipeline. archive may be nil, in which case
// reports are not persisted and history lookups fail with ErrArchiveDisabled.
func NewChangelogService(
	changes ChangeSource,
	resolver *TicketResolver,
	assembler *ReportAssembler,
	archive repository.ReportRepository,
	logger *logger.Logger,
) *ChangelogService {
	return &ChangelogService{
		changes:   changes,
		resolver:  resolver,
		assembler: assembler,
		archive:   archive,
		logger:    logger.Component("service/changelog"),
		now:       time.Now,
	}
}

// GenerateReport builds the changelog for req. Validation runs before any
// upstream call. The first fetch or ticket search failure cancels the rest of
// the work and is returned as *domain.UpstreamError; no partial report is
// produced.
func (s *ChangelogService) GenerateReport(ctx context.Context, req domain.BuildReportRequest) (*domain.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := s.now()
	from, to := req.From.UTC(), req.To.UTC()

	s.logger.Info("generating report",
		"release_branch", req.ReleaseBranch,
		"repos", len(req.Repos),
		"from", from,
		"to", to,
	)

	changes, err := s.fetchAll(ctx, req.Repos, req.ReleaseBranch, from, to)
	if err != nil {
		s.logFailure(err, started)
		return nil, err
	}

	keys := s.collectKeys(changes)

	cache := NewTicketCache()
	tickets, err := s.resolver.Resolve(ctx, cache, keys)
	if err != nil {
		err = &domain.UpstreamError{Stage: domain.StageResolveTickets, Err: err}
		s.logFailure(err, started)
		return nil, err
	}

	stories := make([]domain.Story, 0, len(tickets))
	for i, repo := range req.Repos {
		stories = append(stories, s.assembler.Assemble(repo, changes[i], tickets)...)
	}

	report := &domain.Report{
		ReleaseBranch: req.ReleaseBranch,
		From:          from,
		To:            to,
		GeneratedAt:   s.now().UTC(),
		Stories:       stories,
		Summary:       s.assembler.Summarize(stories, req.Repos),
	}

	s.logger.Info("report generated",
		"release_branch", req.ReleaseBranch,
		"keys", len(keys),
		"tickets", len(tickets),
		"stories", len(stories),
		"elapsed_ms", s.now().Sub(started).Milliseconds(),
	)

	s.store(ctx, report)

	return report, nil
}

// fetchAll runs one fetch per repository concurrently. Results are indexed
// like repos.
func (s *ChangelogService) fetchAll(ctx context.Context, repos []domain.RepoRef, branch string, from, to time.Time) ([][]domain.Change, error) {
	results := make([][]domain.Change, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			changes, err := s.changes.FetchMergedChanges(gctx, repo, branch, from, to)
			if err != nil {
				return &domain.UpstreamError{Stage: domain.StageFetchChanges, Repo: repo.String(), Err: err}
			}
			results[i] = changes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// collectKeys returns the sorted union of ticket keys over all changes.
func (s *ChangelogService) collectKeys(changes [][]domain.Change) []string {
	seen := make(map[string]bool)
	for _, repoChanges := range changes {
		for _, change := range repoChanges {
			for _, key := range s.assembler.keys.Extract(change.SourceBranch) {
				seen[key] = true
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *ChangelogService) logFailure(err error, started time.Time) {
	attrs := []any{"error", err, "elapsed_ms", s.now().Sub(started).Milliseconds()}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		attrs = append(attrs, "stage", upstream.Stage)
		if upstream.Repo != "" {
			attrs = append(attrs, "repo", upstream.Repo)
		}
	}

	if errors.Is(err, context.Canceled) {
		s.logger.Warn("report generation cancelled", attrs...)
		return
	}
	s.logger.Error("report generation failed", attrs...)
}

// store archives the report. Generation only ever writes to the archive;
// History and ArchivedReport are its sole readers. A failure is logged and
// does not affect the caller, who already has the report.
func (s *ChangelogService) store(ctx context.Context, report *domain.Report) {
	if s.archive == nil {
		return
	}

	id, err := s.archive.Save(context.WithoutCancel(ctx), report)
	if err != nil {
		s.logger.Warn("failed to archive report",
			"release_branch", report.ReleaseBranch,
			"error", err,
		)
		return
	}

	s.logger.Debug("report archived", "id", id)
}

// History lists archived reports, newest first.
func (s *ChangelogService) History(ctx context.Context, limit int) ([]domain.ArchivedReport, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveDisabled
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	reports, err := s.archive.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived reports: %w", err)
	}
	return reports, nil
}

func (s *ChangelogService) ArchivedReport(ctx context.Context, id int64) (*domain.Report, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveDisabled
	}

	report, err := s.archive.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get archived report %d: %w", id, err)
	}
	return report, nil
}
