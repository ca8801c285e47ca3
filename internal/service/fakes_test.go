package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZertGraf/changelog-builder/internal/domain"
)

type fakeTracker struct {
	mu          sync.Mutex
	tickets     map[string]domain.TrackerRecord
	epics       map[string]domain.TrackerRecord
	failEpics   map[string]bool
	searchErr   error
	searchCalls [][]string
	epicCalls   []string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		tickets:   make(map[string]domain.TrackerRecord),
		epics:     make(map[string]domain.TrackerRecord),
		failEpics: make(map[string]bool),
	}
}

func (f *fakeTracker) addTicket(key, status, parent string) {
	f.tickets[key] = domain.TrackerRecord{
		Key:       key,
		Summary:   "summary of " + key,
		Status:    status,
		URL:       "https://jira.example.com/browse/" + key,
		ParentKey: parent,
	}
}

func (f *fakeTracker) addEpic(key, parent string) {
	f.epics[key] = domain.TrackerRecord{
		Key:       key,
		Summary:   "epic " + key,
		URL:       "https://jira.example.com/browse/" + key,
		ParentKey: parent,
	}
}

func (f *fakeTracker) SearchTickets(ctx context.Context, keys []string) ([]domain.TrackerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchCalls = append(f.searchCalls, append([]string(nil), keys...))
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var records []domain.TrackerRecord
	for _, key := range keys {
		if record, ok := f.tickets[key]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeTracker) FetchEpic(ctx context.Context, key string) (domain.TrackerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epicCalls = append(f.epicCalls, key)
	if f.failEpics[key] {
		return domain.TrackerRecord{}, fmt.Errorf("fetch epic %s: HTTP 500", key)
	}
	record, ok := f.epics[key]
	if !ok {
		return domain.TrackerRecord{}, fmt.Errorf("fetch epic %s: HTTP 404", key)
	}
	return record, nil
}

type fakeChangeSource struct {
	mu      sync.Mutex
	changes map[string][]domain.Change
	errs    map[string]error
	block   map[string]bool
	calls   []string
}

func newFakeChangeSource() *fakeChangeSource {
	return &fakeChangeSource{
		changes: make(map[string][]domain.Change),
		errs:    make(map[string]error),
		block:   make(map[string]bool),
	}
}

func (f *fakeChangeSource) FetchMergedChanges(ctx context.Context, repo domain.RepoRef, targetBranch string, from, to time.Time) ([]domain.Change, error) {
	f.mu.Lock()
	f.calls = append(f.calls, repo.String())
	changes, err, block := f.changes[repo.String()], f.errs[repo.String()], f.block[repo.String()]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (f *fakeChangeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeArchive struct {
	mu     sync.Mutex
	saved  []*domain.Report
	err    error
	nextID int64
	reads  int
}

func (f *fakeArchive) Save(ctx context.Context, report *domain.Report) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.saved = append(f.saved, report)
	return f.nextID, nil
}

func (f *fakeArchive) List(ctx context.Context, limit int) ([]domain.ArchivedReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	var out []domain.ArchivedReport
	for i, report := range f.saved {
		if len(out) == limit {
			break
		}
		out = append(out, domain.ArchivedReport{ID: int64(i + 1), ReleaseBranch: report.ReleaseBranch, StoryCount: len(report.Stories)})
	}
	return out, nil
}

func (f *fakeArchive) Get(ctx context.Context, id int64) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if id < 1 || int(id) > len(f.saved) {
		return nil, domain.ErrReportNotFound
	}
	return f.saved[id-1], nil
}

func change(id int, source string) domain.Change {
	return domain.Change{
		ID:           id,
		Title:        fmt.Sprintf("change %d", id),
		SourceBranch: source,
		TargetBranch: "sit/release/2025-09",
		MergedAt:     time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC),
		URL:          fmt.Sprintf("https://bitbucket.example.com/pr/%d", id),
	}
}
