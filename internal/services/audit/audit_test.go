package audit_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/services/audit"
)

type publisherStub struct {
	mu       sync.Mutex
	calls    int
	failures int // сколько первых вызовов завершить ошибкой
	events   []models.AuditEvent
}

func (p *publisherStub) Publish(_, _ string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	if e, ok := message.(models.AuditEvent); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRecord_Publishes(t *testing.T) {
	pub := &publisherStub{}
	svc := audit.New(pub, newNoopLogger(), dedup.New(time.Minute, 100), 3, time.Millisecond)

	svc.Record(models.AuditEvent{
		ActorUID:     "admin-uid",
		Action:       "user.register",
		ResourceKind: "user",
		ResourceID:   "new-uid",
		Changes:      map[string]any{"email": "new@example.com"},
	})
	svc.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 1)
	assert.Equal(t, "user.register", pub.events[0].Action)
	assert.False(t, pub.events[0].OccurredAt.IsZero())
}

func TestRecord_RetriesTransientFailure(t *testing.T) {
	pub := &publisherStub{failures: 2}
	svc := audit.New(pub, newNoopLogger(), dedup.New(time.Minute, 100), 3, time.Millisecond)

	svc.Record(models.AuditEvent{Action: "user.update_role"})
	svc.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 3, pub.calls)
	require.Len(t, pub.events, 1)
}

func TestRecord_GivesUpAfterBoundedRetries(t *testing.T) {
	pub := &publisherStub{failures: 100}
	svc := audit.New(pub, newNoopLogger(), dedup.New(time.Minute, 100), 3, time.Millisecond)

	svc.Record(models.AuditEvent{Action: "user.update_status"})
	svc.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 3, pub.calls)
	assert.Empty(t, pub.events)
}
