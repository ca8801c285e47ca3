package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"sort"
)

type ReportRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewReportRepo(db *pgxpool.Pool, logger *logger.Logger) *ReportRepo {
	return &ReportRepo{
		db:     db,
		logger: logger.Component("repository/report"),
	}
}

// Save stores the full report and one index row per story in a single
// transaction and returns the new report id.
func (r *ReportRepo) Save(ctx context.Context, report *domain.Report) (int64, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}

	var id int64
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO changelog_reports
                (release_branch, from_ts, to_ts, generated_at, repos, story_count, payload)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id
        `,
			report.ReleaseBranch,
			report.From,
			report.To,
			report.GeneratedAt,
			reportRepos(report),
			len(report.Stories),
			payload,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		batch := &pgx.Batch{}
		for _, story := range report.Stories {
			batch.Queue(`
                INSERT INTO changelog_report_stories (report_id, repo, ticket_key, ticket_status, change_count)
                VALUES ($1, $2, $3, $4, $5)
            `, id, story.Repo.String(), story.Ticket.Key, story.Ticket.Status, len(story.Changes))
		}
		if batch.Len() == 0 {
			return nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert stories: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("report saved",
		"id", id,
		"release_branch", report.ReleaseBranch,
		"stories", len(report.Stories),
	)

	return id, nil
}

// List returns summary rows of the newest reports first.
func (r *ReportRepo) List(ctx context.Context, limit int) ([]domain.ArchivedReport, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, release_branch, from_ts, to_ts, generated_at, repos, story_count
        FROM changelog_reports
        ORDER BY generated_at DESC, id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.ArchivedReport, 0, limit)
	for rows.Next() {
		var report domain.ArchivedReport
		if err := rows.Scan(
			&report.ID,
			&report.ReleaseBranch,
			&report.From,
			&report.To,
			&report.GeneratedAt,
			&report.Repos,
			&report.StoryCount,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return reports, nil
}

// Get loads a stored report. Returns ErrReportNotFound if the id is unknown.
func (r *ReportRepo) Get(ctx context.Context, id int64) (*domain.Report, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM changelog_reports WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report %d: %w", id, err)
	}

	return &report, nil
}

// reportRepos lists the repositories of the report's summary in a stable order.
func reportRepos(report *domain.Report) []string {
	repos := make([]string, 0, len(report.Summary.RepoBreakdown))
	for repo := range report.Summary.RepoBreakdown {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// withTx runs fn in a transaction, rolling back on error
func (r *ReportRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
