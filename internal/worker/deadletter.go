package worker

import (
	"time"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/queue"
)

// DeadLetterLogger records exhausted and permanently failed deliveries with
// full diagnostic context for offline inspection. Emits structured log
// entries only; database persistence is deliberately deferred.
type DeadLetterLogger struct {
	logger  *logger.Logger
	backoff Backoff
}

func NewDeadLetterLogger(log *logger.Logger, backoff Backoff) *DeadLetterLogger {
	return &DeadLetterLogger{
		logger:  log.WithFields(map[string]interface{}{"component": "dead_letter"}),
		backoff: backoff,
	}
}

// Record emits the diagnostic entry for one abandoned job. Secrets in the
// event payload are redacted before logging.
func (d *DeadLetterLogger) Record(job *queue.Job, event *mailer.EmailEvent, cause error, cls Classification, isPermanent bool) {
	entry := d.logger.ZL().Error().
		Str("lifecycle", "dead_letter").
		Str("job_id", job.ID).
		Int("attempt", job.AttemptsMade).
		Int("max_attempts", job.MaxAttempts).
		Bool("is_permanent_error", isPermanent).
		Str("category", string(cls.Category)).
		Str("severity", cls.Severity).
		Bool("retryable", cls.Retryable).
		Time("failed_at", time.Now().UTC())

	if cls.ActionRequired != "" {
		entry = entry.Str("action_required", cls.ActionRequired)
	}
	if cause != nil {
		entry = entry.Str("error", cause.Error())
	}
	if event != nil {
		entry = entry.
			Str("event_type", string(event.Type)).
			Str("locale", string(event.Locale)).
			Interface("event", event.Sanitized())
	}

	// Reconstruct the delays the job actually waited through so the log
	// line alone tells the whole retry story.
	if job.AttemptsMade > 1 {
		history := make([]int64, 0, job.AttemptsMade-1)
		for attempt := 1; attempt < job.AttemptsMade; attempt++ {
			history = append(history, d.backoff.Delay(attempt).Milliseconds())
		}
		entry = entry.Interface("retry_delay_history_ms", history)
	}

	entry.Msg("email delivery abandoned")
}
