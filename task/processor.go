package task

import (
	"go.uber.org/zap"
)

// Processor receives notification of task progress.
// Hooks may be invoked concurrently for different hosts.
type Processor interface {
	TaskStarted(name, runID string)
	TaskCompleted(name string, ar *AggregatedResult)
	HostStarted(t *Task)
	HostCompleted(t *Task, mr MultiResult)
}

// Processors is a list of processors, notified in order.
type Processors []Processor

// TaskStarted notifies every processor that a run has started.
func (ps Processors) TaskStarted(name, runID string) {
	for _, p := range ps {
		p.TaskStarted(name, runID)
	}
}

// TaskCompleted notifies every processor that a run has completed.
func (ps Processors) TaskCompleted(name string, ar *AggregatedResult) {
	for _, p := range ps {
		p.TaskCompleted(name, ar)
	}
}

// HostStarted notifies every processor that a task has started against a host.
func (ps Processors) HostStarted(t *Task) {
	for _, p := range ps {
		p.HostStarted(t)
	}
}

// HostCompleted notifies every processor that a task has completed against a host.
func (ps Processors) HostCompleted(t *Task, mr MultiResult) {
	for _, p := range ps {
		p.HostCompleted(t, mr)
	}
}

type loggingProcessor struct {
	logger *zap.Logger
}

// LoggingProcessor delivers a processor that logs task progress.
func LoggingProcessor(logger *zap.Logger) Processor {
	return &loggingProcessor{logger: logger}
}

func (lp *loggingProcessor) TaskStarted(name, runID string) {
	lp.logger.Info("task started", zap.String("task", name), zap.String("run", runID))
}

func (lp *loggingProcessor) TaskCompleted(name string, ar *AggregatedResult) {
	lp.logger.Info("task completed", zap.String("task", name), zap.String("run", ar.ID),
		zap.Int("hosts", ar.Len()), zap.Int("failed", len(ar.FailedHosts())))
}

func (lp *loggingProcessor) HostStarted(t *Task) {
	lp.logger.Debug("host started", zap.String("task", t.Name), zap.String("host", t.Host.Name))
}

func (lp *loggingProcessor) HostCompleted(t *Task, mr MultiResult) {
	fields := []zap.Field{zap.String("task", t.Name), zap.String("host", t.Host.Name),
		zap.Bool("failed", mr.Failed()), zap.Bool("changed", mr.Changed())}
	if mr.Failed() {
		lp.logger.Warn("host failed", append(fields, zap.Error(mr[0].Err))...)
		return
	}
	lp.logger.Debug("host completed", fields...)
}
