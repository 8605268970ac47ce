// Package services wires the generation engine, job store, and runner into
// the operations the HTTP layer exposes.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/engine"
	"github.com/datasynth-ai/datasynth-engine/pkg/exporters"
	"github.com/datasynth-ai/datasynth-engine/pkg/jobs"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
	"github.com/datasynth-ai/datasynth-engine/pkg/schema"
)

// GenerationService validates generation requests, runs them as background
// jobs, and serves their results.
type GenerationService struct {
	store  *jobs.Store
	runner *jobs.Runner
	engine *engine.Engine
	logger *zap.Logger
}

// NewGenerationService creates a generation service.
func NewGenerationService(store *jobs.Store, runner *jobs.Runner, eng *engine.Engine, logger *zap.Logger) *GenerationService {
	return &GenerationService{
		store:  store,
		runner: runner,
		engine: eng,
		logger: logger.Named("generation"),
	}
}

// StartJob validates the request and launches it as a background job,
// returning the new job's ID. Validation failures surface as
// schema.ValidationErrors before any job state is created.
func (s *GenerationService) StartJob(ctx context.Context, req *models.GenerateRequest) (string, error) {
	if err := schema.Validate(req); err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	if err := s.store.Create(ctx, jobID, req); err != nil {
		return "", err
	}

	if err := s.runner.Start(jobID, func(jobCtx context.Context) {
		s.run(jobCtx, jobID, req)
	}); err != nil {
		return "", err
	}

	s.logger.Info("generation job accepted",
		zap.String("job_id", jobID),
		zap.String("job_name", req.Config.JobName),
		zap.Int("tables", len(req.Tables)),
		zap.Int("total_rows", req.TotalRows()))
	return jobID, nil
}

// run executes one job to its terminal state. Store writes use a context
// that survives job cancellation, otherwise the terminal state itself could
// not be recorded.
func (s *GenerationService) run(ctx context.Context, jobID string, req *models.GenerateRequest) {
	storeCtx := context.WithoutCancel(ctx)

	if err := s.store.SetStatus(storeCtx, jobID, models.JobInitializing); err != nil {
		s.logger.Warn("job already settled", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := s.store.SetStatus(storeCtx, jobID, models.JobRunning); err != nil {
		s.logger.Warn("job already settled", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	lastPercent := -1
	onProgress := func(percent int) {
		if percent == lastPercent || percent == 100 {
			return
		}
		lastPercent = percent
		if err := s.store.SetProgress(storeCtx, jobID, percent); err != nil {
			s.logger.Debug("progress write skipped", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	dataset, err := s.engine.Generate(ctx, req, onProgress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if cerr := s.store.Cancel(storeCtx, jobID); cerr != nil {
				s.logger.Error("record cancellation", zap.String("job_id", jobID), zap.Error(cerr))
			}
			return
		}
		s.logger.Error("generation failed", zap.String("job_id", jobID), zap.Error(err))
		if ferr := s.store.Fail(storeCtx, jobID, err.Error()); ferr != nil {
			s.logger.Error("record failure", zap.String("job_id", jobID), zap.Error(ferr))
		}
		return
	}

	payload, err := Render(req, dataset)
	if err != nil {
		s.logger.Error("render failed", zap.String("job_id", jobID), zap.Error(err))
		if ferr := s.store.Fail(storeCtx, jobID, err.Error()); ferr != nil {
			s.logger.Error("record failure", zap.String("job_id", jobID), zap.Error(ferr))
		}
		return
	}

	if err := s.store.Complete(storeCtx, jobID, payload); err != nil {
		s.logger.Warn("completion not recorded", zap.String("job_id", jobID), zap.Error(err))
	}
}

// GenerateSync validates and runs a request inline, skipping the job
// machinery. maxRows caps how much work the caller can demand on a blocking
// request; zero means no cap.
func (s *GenerationService) GenerateSync(ctx context.Context, req *models.GenerateRequest, maxRows int) ([]byte, models.OutputFormat, string, error) {
	if err := schema.Validate(req); err != nil {
		return nil, "", "", err
	}
	if maxRows > 0 && req.TotalRows() > maxRows {
		return nil, "", "", fmt.Errorf("request of %d rows exceeds synchronous limit of %d", req.TotalRows(), maxRows)
	}

	dataset, err := s.engine.Generate(ctx, req, nil)
	if err != nil {
		return nil, "", "", err
	}
	payload, err := Render(req, dataset)
	if err != nil {
		return nil, "", "", err
	}
	format := req.Config.OutputFormat
	return payload, format, exporters.Filename(req.Config.JobName, format), nil
}

// Job returns the current state of a job.
func (s *GenerationService) Job(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.Get(ctx, jobID)
}

// Cancel stops a running job and records the cancellation. It is a no-op
// for jobs that already settled.
func (s *GenerationService) Cancel(ctx context.Context, jobID string) error {
	if _, err := s.store.Get(ctx, jobID); err != nil {
		return err
	}
	s.runner.Cancel(jobID)
	return s.store.Cancel(ctx, jobID)
}

// Result returns the rendered payload of a completed job along with its
// format and download filename.
func (s *GenerationService) Result(ctx context.Context, jobID string) ([]byte, models.OutputFormat, string, error) {
	payload, format, jobName, err := s.store.Result(ctx, jobID)
	if err != nil {
		return nil, "", "", err
	}
	return payload, format, exporters.Filename(jobName, format), nil
}

// Render turns a generated dataset into the request's output format.
func Render(req *models.GenerateRequest, dataset *engine.Dataset) ([]byte, error) {
	switch req.Config.OutputFormat {
	case models.FormatCSV:
		return exporters.DatasetCSV(dataset)
	case models.FormatSQL:
		return exporters.DatasetSQL(dataset), nil
	case models.FormatJSON:
		result := models.JSONResult{
			JobName:   req.Config.JobName,
			RowsCount: dataset.TotalRows(),
			Tables:    dataset.Rows,
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode json result: %w", err)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("output format %q: unsupported", req.Config.OutputFormat)
	}
}
