package repository

import (
	"context"
	"github.com/ZertGraf/changelog-builder/internal/domain"
)

// ReportRepository - archive of generated reports
type ReportRepository interface {
	Save(ctx context.Context, report *domain.Report) (int64, error)
	List(ctx context.Context, limit int) ([]domain.ArchivedReport, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
}
