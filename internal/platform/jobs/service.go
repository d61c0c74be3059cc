package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/probation"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/metrics"
)

const JobProbationSweep = "probation_sweep"

// Service is a small in-process job runner: a buffered queue, one
// worker, and a ticker that schedules the probation sweep. Every run is
// recorded in job_runs so operators can audit what the scheduler did.
type Service struct {
	DB        *pgxpool.Pool
	Cfg       config.Config
	Probation *probation.Service
	Metrics   *metrics.Collector
	queue     chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, probationSvc *probation.Service, collector *metrics.Collector) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		Probation: probationSvc,
		Metrics:   collector,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.ProbationSweepInterval > 0 {
		go s.scheduleProbationSweep(ctx, s.Cfg.ProbationSweepInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes the job synchronously, with the same run bookkeeping
// as scheduled jobs. The probation handler uses it for manual sweeps.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1, $2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleProbationSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobProbationSweep, s.SweepProbation)
		}
	}
}

// SweepProbation promotes every employee whose probation expired.
func (s *Service) SweepProbation(ctx context.Context) (any, error) {
	summary, err := s.Probation.ProcessExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordSweep(summary.Promoted)
	}
	return summary, nil
}
