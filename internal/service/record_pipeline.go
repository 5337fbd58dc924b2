package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/gateway"
	"weatherlog/internal/metrics"
	"weatherlog/internal/model"
	"weatherlog/internal/repository"
)

const (
	minLocationLength = 2
	maxLocationLength = 100
	// MaxForecastHorizon is how far past today a record's end date may lie.
	MaxForecastHorizon = 14 * 24 * time.Hour
)

// Mode selects whether the pipeline inserts a new record or overwrites an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageOwnership     Stage = "ownership"
	StageFetchForecast Stage = "fetch_forecast"
	StageFetchLocation Stage = "fetch_location"
	StagePersist       Stage = "persist"
)

// PipelineError is a record pipeline failure tagged with its stage.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// SubmitInput is one create or update request.
type SubmitInput struct {
	UserID     uuid.UUID
	Location   string
	StartDate  string
	EndDate    string
	Mode       Mode
	ExistingID uuid.UUID
}

// SubmitResult is the persisted record together with the payloads just fetched.
type SubmitResult struct {
	Record   *model.WeatherRecord
	Forecast *model.Forecast
	Location *model.LocationInfo
}

// RecordPipeline is the only path that creates or modifies weather records.
type RecordPipeline interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
}

type recordPipeline struct {
	records repository.RecordRepository
	gateway gateway.Gateway
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecordPipeline builds the pipeline. now may be nil to use the wall clock.
func NewRecordPipeline(records repository.RecordRepository, gw gateway.Gateway, logger *slog.Logger, now func() time.Time) RecordPipeline {
	if now == nil {
		now = time.Now
	}
	return &recordPipeline{records: records, gateway: gw, logger: logger, now: now}
}

type validatedInput struct {
	location string
	start    model.Date
	end      model.Date
	days     int
}

// Submit validates the input, fetches the forecast and then the location
// metadata, and writes the record once. Nothing is written unless both
// fetches succeed; on update the previous payload stays intact until then.
func (p *recordPipeline) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	result, err := p.submit(ctx, in)
	if err != nil {
		var pe *PipelineError
		if errors.As(err, &pe) {
			metrics.PipelineFailures.WithLabelValues(string(pe.Stage)).Inc()
			if pe.Stage != StageValidate && pe.Stage != StageOwnership {
				p.logger.Warn("record pipeline failed",
					slog.String("stage", string(pe.Stage)),
					slog.String("mode", string(in.Mode)),
					slog.Any("error", pe.Err),
				)
			}
		}
		return nil, err
	}
	metrics.RecordsWritten.WithLabelValues(string(in.Mode)).Inc()
	return result, nil
}

func (p *recordPipeline) submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	valid, err := p.validate(in)
	if err != nil {
		return nil, &PipelineError{Stage: StageValidate, Err: err}
	}

	var existing *model.WeatherRecord
	switch in.Mode {
	case ModeCreate:
	case ModeUpdate:
		if in.ExistingID == uuid.Nil {
			return nil, &PipelineError{Stage: StageOwnership, Err: apperrors.ErrRecordNotFound}
		}
		existing, err = p.records.FindByIDForUser(ctx, in.ExistingID, in.UserID)
		if err != nil {
			return nil, &PipelineError{Stage: StageOwnership, Err: err}
		}
	default:
		return nil, &PipelineError{Stage: StageValidate, Err: fmt.Errorf("unknown pipeline mode %q", in.Mode)}
	}

	forecast, err := p.gateway.FetchForecast(ctx, valid.location, valid.days)
	if err != nil {
		return nil, &PipelineError{Stage: StageFetchForecast, Err: err}
	}

	location, err := p.gateway.ResolveLocation(ctx, valid.location)
	if err != nil {
		return nil, &PipelineError{Stage: StageFetchLocation, Err: err}
	}

	weatherData, err := json.Marshal(forecast)
	if err != nil {
		return nil, &PipelineError{Stage: StagePersist, Err: fmt.Errorf("encode forecast: %w", err)}
	}
	locationData, err := json.Marshal(location)
	if err != nil {
		return nil, &PipelineError{Stage: StagePersist, Err: fmt.Errorf("encode location: %w", err)}
	}

	name := strings.TrimSpace(forecast.Location)
	if name == "" {
		name = valid.location
	}

	now := p.now().UTC()
	record := &model.WeatherRecord{
		UserID:       in.UserID,
		Location:     name,
		StartDate:    valid.start,
		EndDate:      valid.end,
		WeatherData:  datatypes.JSON(weatherData),
		LocationData: datatypes.JSON(locationData),
		UpdatedAt:    now,
	}

	if existing == nil {
		record.ID = uuid.New()
		record.CreatedAt = now
		if err := p.records.Create(ctx, record); err != nil {
			return nil, &PipelineError{Stage: StagePersist, Err: fmt.Errorf("create record: %w", err)}
		}
	} else {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if err := p.records.Save(ctx, record); err != nil {
			return nil, &PipelineError{Stage: StagePersist, Err: fmt.Errorf("update record: %w", err)}
		}
	}

	return &SubmitResult{Record: record, Forecast: forecast, Location: location}, nil
}

// validate applies the input rules in order; the first violation wins.
func (p *recordPipeline) validate(in SubmitInput) (*validatedInput, error) {
	location, err := validLocation(in.Location)
	if err != nil {
		return nil, err
	}

	start, err := model.ParseDate(in.StartDate)
	if err != nil {
		return nil, apperrors.NewValidationError("startDate", "valid start date is required")
	}
	end, err := model.ParseDate(in.EndDate)
	if err != nil {
		return nil, apperrors.NewValidationError("endDate", "valid end date is required")
	}
	if start.After(end.Time) {
		return nil, apperrors.NewValidationError("startDate", "start date must be before or equal to end date")
	}
	if end.After(p.now().Add(MaxForecastHorizon)) {
		return nil, apperrors.NewValidationError("endDate", "end date cannot be more than 14 days in the future")
	}

	return &validatedInput{
		location: location,
		start:    start,
		end:      end,
		days:     DaysRequested(start, end),
	}, nil
}

// DaysRequested is the inclusive number of calendar days from start to end.
func DaysRequested(start, end model.Date) int {
	return int(end.Sub(start.Time).Hours()/24) + 1
}
