package service

import (
	"context"

	"github.com/google/uuid"

	"weatherlog/internal/export"
	"weatherlog/internal/model"
	"weatherlog/internal/repository"
)

const (
	// DefaultPageLimit is the page size used when none is requested.
	DefaultPageLimit = 10
	// MaxPageLimit is the largest page size a caller may request.
	MaxPageLimit = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// RecordPage is one page of a user's records, newest first.
type RecordPage struct {
	Records    []model.WeatherRecord `json:"records"`
	Pagination Pagination            `json:"pagination"`
}

// RecordService exposes the read and delete side of weather records.
// Writes go through RecordPipeline.
type RecordService interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*model.WeatherRecord, error)
	List(ctx context.Context, userID uuid.UUID, page, limit int) (*RecordPage, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Export(ctx context.Context, userID uuid.UUID, format string) (*export.Document, error)
}

type recordService struct {
	repo repository.RecordRepository
}

// NewRecordService builds a RecordService.
func NewRecordService(repo repository.RecordRepository) RecordService {
	return &recordService{repo: repo}
}

func (s *recordService) Get(ctx context.Context, userID, id uuid.UUID) (*model.WeatherRecord, error) {
	return s.repo.FindByIDForUser(ctx, id, userID)
}

func (s *recordService) List(ctx context.Context, userID uuid.UUID, page, limit int) (*RecordPage, error) {
	page, limit = NormalizePage(page, limit)

	records, total, err := s.repo.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &RecordPage{
		Records: records,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

func (s *recordService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteForUser(ctx, id, userID)
}

func (s *recordService) Export(ctx context.Context, userID uuid.UUID, format string) (*export.Document, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return export.Render(f, records)
}

// NormalizePage clamps page to at least 1 and limit to 1..MaxPageLimit,
// substituting defaults for missing values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
