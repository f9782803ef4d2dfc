package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"account-onboarding/internal/common/logger"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type WorkerConfig struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type Worker struct {
	worker worker.JobWorker
	logger logger.Logger
	config WorkerConfig
}

// NewWorker opens a job worker for one task type.
func NewWorker(client zbc.Client, cfg WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 5
	}

	step := client.NewJobWorker().
		JobType(cfg.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(cfg.MaxJobsActive)
	if cfg.Timeout > 0 {
		step = step.Timeout(cfg.Timeout)
	}

	w := &Worker{
		worker: step.Open(),
		logger: log.WithFields(map[string]interface{}{"taskType": cfg.TaskType}),
		config: cfg,
	}
	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": cfg.MaxJobsActive,
		"timeoutMs":     cfg.Timeout.Milliseconds(),
	})
	return w
}

// Stop closes the worker and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
