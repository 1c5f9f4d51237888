// Package metrics содержит счетчики Prometheus для подсистемы
// аутентификации и фонового трекера. Коллекторы регистрируются
// в реестре по умолчанию и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts — попытки входа по результату (success/failure).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_auth_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// TokenVerifications — проверки токена по результату.
	TokenVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_auth_token_verifications_total",
		Help: "Token verifications by result.",
	}, []string{"result"})

	// TrackedJobs — завершенные фоновые задачи по типу ресурса и исходу
	// (succeeded/failed/cancelled/retried).
	TrackedJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_tracker_jobs_total",
		Help: "Tracked background jobs by resource kind and outcome.",
	}, []string{"kind", "outcome"})

	// RunningJobs — число задач в состоянии Running по типу ресурса.
	RunningJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "insight_tracker_running_jobs",
		Help: "Currently running tracked jobs by resource kind.",
	}, []string{"kind"})

	// AuditPublishFailures — неудачные публикации событий аудита
	// после исчерпания повторов.
	AuditPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insight_audit_publish_failures_total",
		Help: "Audit events dropped after exhausting publish retries.",
	})
)
