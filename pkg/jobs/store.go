// Package jobs holds the server-side job state: a redis-backed store that is
// the single source of truth for job status, and a runner that executes
// generation work on cancellable goroutines.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// jobTTL is how long finished jobs stay fetchable.
const jobTTL = 24 * time.Hour

// Store persists job state in redis hashes and publishes every status
// mutation on the job's pub/sub channel, which feeds the status stream.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewStore creates a store on an existing redis client.
func NewStore(rdb *redis.Client, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, logger: logger.Named("jobstore")}
}

func jobKey(id string) string        { return "job:" + id }
func statusChannel(id string) string { return "job-status:" + id }

// Create registers a pending job. The submitted request is stored alongside
// the state so a job record is self-describing.
func (s *Store) Create(ctx context.Context, id string, req *models.GenerateRequest) error {
	configJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode job %s config: %w", id, err)
	}

	err = s.rdb.HSet(ctx, jobKey(id), map[string]any{
		"status":     string(models.JobPending),
		"progress":   0,
		"error":      "",
		"job_name":   req.Config.JobName,
		"format":     string(req.Config.OutputFormat),
		"config":     configJSON,
		"created_at": time.Now().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("create job %s: %w", id, err)
	}
	if err := s.rdb.Expire(ctx, jobKey(id), jobTTL).Err(); err != nil {
		return fmt.Errorf("set job %s ttl: %w", id, err)
	}
	return nil
}

// Get returns the tracked state of a job.
func (s *Store) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}

	job := &models.Job{
		ID:     id,
		Status: models.JobStatus(data["status"]),
		Error:  data["error"],
	}
	if p, err := strconv.Atoi(data["progress"]); err == nil {
		job.Progress = p
	}
	if ts, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		job.CreatedAt = ts
	}
	return job, nil
}

// SetStatus moves a job forward through the state machine and publishes the
// transition. Illegal moves (regressions, writes after a terminal state)
// return ErrJobTerminal and leave the record untouched.
func (s *Store) SetStatus(ctx context.Context, id string, status models.JobStatus) error {
	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransition(status) {
		return fmt.Errorf("job %s: %s -> %s: %w", id, current, status, apperrors.ErrJobTerminal)
	}
	if err := s.rdb.HSet(ctx, jobKey(id), "status", string(status)).Err(); err != nil {
		return fmt.Errorf("set job %s status: %w", id, err)
	}
	s.publish(ctx, id, models.StatusUpdate{Status: &status})
	return nil
}

// SetProgress records generation progress and publishes it.
func (s *Store) SetProgress(ctx context.Context, id string, progress int) error {
	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if current.Terminal() {
		return fmt.Errorf("job %s: %w", id, apperrors.ErrJobTerminal)
	}
	if err := s.rdb.HSet(ctx, jobKey(id), "progress", progress).Err(); err != nil {
		return fmt.Errorf("set job %s progress: %w", id, err)
	}
	s.publish(ctx, id, models.StatusUpdate{Progress: &progress})
	return nil
}

// Complete stores the rendered result and marks the job completed.
func (s *Store) Complete(ctx context.Context, id string, result []byte) error {
	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransition(models.JobCompleted) {
		return fmt.Errorf("job %s: %w", id, apperrors.ErrJobTerminal)
	}
	err = s.rdb.HSet(ctx, jobKey(id), map[string]any{
		"status":   string(models.JobCompleted),
		"progress": 100,
		"result":   result,
	}).Err()
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	status := models.JobCompleted
	progress := 100
	s.publish(ctx, id, models.StatusUpdate{Status: &status, Progress: &progress})
	return nil
}

// Fail marks the job failed with the engine's error message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if !current.CanTransition(models.JobFailed) {
		return fmt.Errorf("job %s: %w", id, apperrors.ErrJobTerminal)
	}
	err = s.rdb.HSet(ctx, jobKey(id), map[string]any{
		"status": string(models.JobFailed),
		"error":  message,
	}).Err()
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	status := models.JobFailed
	s.publish(ctx, id, models.StatusUpdate{Status: &status, Error: message})
	return nil
}

// Cancel marks the job cancelled. Cancelling an already-terminal job is a
// no-op so the operation stays idempotent for retried requests.
func (s *Store) Cancel(ctx context.Context, id string) error {
	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if current.Terminal() {
		return nil
	}
	if err := s.rdb.HSet(ctx, jobKey(id), "status", string(models.JobCancelled)).Err(); err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	status := models.JobCancelled
	s.publish(ctx, id, models.StatusUpdate{Status: &status})
	return nil
}

// Result returns the stored result payload and its format. Only completed
// jobs have one.
func (s *Store) Result(ctx context.Context, id string) ([]byte, models.OutputFormat, string, error) {
	data, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, "", "", fmt.Errorf("get job %s result: %w", id, err)
	}
	if len(data) == 0 {
		return nil, "", "", fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	if models.JobStatus(data["status"]) != models.JobCompleted {
		return nil, "", "", fmt.Errorf("job %s is %s: %w", id, data["status"], apperrors.ErrResultRetrieval)
	}
	return []byte(data["result"]), models.OutputFormat(data["format"]), data["job_name"], nil
}

// Subscribe opens the job's status stream. The returned channel delivers
// updates in publish order; the cancel function tears the subscription down.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan models.StatusUpdate, func(), error) {
	sub := s.rdb.Subscribe(ctx, statusChannel(id))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, nil, fmt.Errorf("subscribe to job %s: %w", id, err)
	}

	updates := make(chan models.StatusUpdate, 16)
	go func() {
		defer close(updates)
		for msg := range sub.Channel() {
			var update models.StatusUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				s.logger.Warn("malformed status update",
					zap.String("job_id", id),
					zap.Error(err))
				continue
			}
			updates <- update
		}
	}()

	return updates, func() { _ = sub.Close() }, nil
}

func (s *Store) currentStatus(ctx context.Context, id string) (models.JobStatus, error) {
	status, err := s.rdb.HGet(ctx, jobKey(id), "status").Result()
	if err == redis.Nil {
		return "", fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get job %s status: %w", id, err)
	}
	return models.JobStatus(status), nil
}

func (s *Store) publish(ctx context.Context, id string, update models.StatusUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("marshal status update", zap.String("job_id", id), zap.Error(err))
		return
	}
	if err := s.rdb.Publish(ctx, statusChannel(id), payload).Err(); err != nil {
		s.logger.Warn("publish status update",
			zap.String("job_id", id),
			zap.Error(err))
	}
}
