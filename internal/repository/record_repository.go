package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/model"
)

// RecordRepository defines owner-scoped persistence for weather records.
// Every read and delete is filtered by owner; a record owned by someone else
// is reported exactly like a missing one.
type RecordRepository interface {
	Create(ctx context.Context, record *model.WeatherRecord) error
	// Save overwrites every mutable column of an existing record.
	Save(ctx context.Context, record *model.WeatherRecord) error
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.WeatherRecord, error)
	// ListByUser returns one page, newest first, plus the owner's total count.
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.WeatherRecord, int64, error)
	// ListAllByUser returns every record of the owner, newest first.
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]model.WeatherRecord, error)
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) error
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository builds a GORM-backed repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, record *model.WeatherRecord) error {
	return r.db.WithContext(ctx).Omit("User").Create(record).Error
}

func (r *recordRepository) Save(ctx context.Context, record *model.WeatherRecord) error {
	res := r.db.WithContext(ctx).Model(&model.WeatherRecord{}).
		Where("id = ? AND user_id = ?", record.ID, record.UserID).
		Select("location", "start_date", "end_date", "weather_data", "location_data", "updated_at").
		Updates(map[string]interface{}{
			"location":      record.Location,
			"start_date":    record.StartDate,
			"end_date":      record.EndDate,
			"weather_data":  record.WeatherData,
			"location_data": record.LocationData,
			"updated_at":    record.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}

func (r *recordRepository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.WeatherRecord, error) {
	var record model.WeatherRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *recordRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.WeatherRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.WeatherRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	records := make([]model.WeatherRecord, 0, limit)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *recordRepository) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]model.WeatherRecord, error) {
	records := make([]model.WeatherRecord, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *recordRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.WeatherRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}
