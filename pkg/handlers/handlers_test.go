package handlers

import (
	"context"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// fakeService scripts the generation service for handler tests.
type fakeService struct {
	startJobID string
	startErr   error

	syncPayload  []byte
	syncFormat   models.OutputFormat
	syncFilename string
	syncErr      error

	jobs      map[string]*models.Job
	jobErr    error
	cancelled []string
	cancelErr error

	payload   []byte
	format    models.OutputFormat
	filename  string
	resultErr error
}

func (f *fakeService) StartJob(ctx context.Context, req *models.GenerateRequest) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.startJobID, nil
}

func (f *fakeService) GenerateSync(ctx context.Context, req *models.GenerateRequest, maxRows int) ([]byte, models.OutputFormat, string, error) {
	if f.syncErr != nil {
		return nil, "", "", f.syncErr
	}
	return f.syncPayload, f.syncFormat, f.syncFilename, nil
}

func (f *fakeService) Job(ctx context.Context, jobID string) (*models.Job, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	return f.jobs[jobID], nil
}

func (f *fakeService) Cancel(ctx context.Context, jobID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeService) Result(ctx context.Context, jobID string) ([]byte, models.OutputFormat, string, error) {
	if f.resultErr != nil {
		return nil, "", "", f.resultErr
	}
	return f.payload, f.format, f.filename, nil
}

var _ GenerationService = (*fakeService)(nil)

// fakeStatusSource scripts job state and update streams for websocket tests.
type fakeStatusSource struct {
	job     *models.Job
	jobErr  error
	updates chan models.StatusUpdate
}

func (f *fakeStatusSource) Get(ctx context.Context, jobID string) (*models.Job, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	return f.job, nil
}

func (f *fakeStatusSource) Subscribe(ctx context.Context, jobID string) (<-chan models.StatusUpdate, func(), error) {
	return f.updates, func() {}, nil
}

var _ StatusSource = (*fakeStatusSource)(nil)
