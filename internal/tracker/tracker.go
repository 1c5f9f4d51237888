// Package tracker реализует учет фоновых задач по ключу ресурса.
//
// Трекер гарантирует не более одной выполняющейся задачи на ключ
// (вид ресурса + идентификатор): повторный запуск при выполняющейся
// задаче схлопывается в уже идущую. Неудачные задачи повторяются
// ограниченное число раз с экспоненциальной задержкой, после чего
// остаются в состоянии Failed до явного перезапуска.
//
// Все переходы состояния для одного ключа строго последовательны:
// таблица защищена мьютексом, а каждый асинхронный колбэк (завершение
// задачи, отложенный повтор) перед изменением состояния проверяет
// "поколение" задачи. Запоздавший колбэк отмененной или перезапущенной
// задачи молча отбрасывается и не затирает более новый результат.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/insight-console/internal/lib/sl"
	"github.com/magabrotheeeer/insight-console/internal/metrics"
)

// State — состояние задачи.
type State string

// Состояния задачи. Succeeded и Cancelled терминальны до следующего
// запуска; Failed терминально после исчерпания повторов.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ScheduleResult — результат вызова Schedule.
type ScheduleResult string

const (
	// Accepted — задача принята и запущена.
	Accepted ScheduleResult = "accepted"
	// Coalesced — задача по этому ключу уже выполняется,
	// новый запуск не создан.
	Coalesced ScheduleResult = "coalesced"
)

// JobFunc — фоновая задача. Возвращает ссылку на произведенный
// артефакт (например, ключ кэша). Задача обязана уважать отмену
// контекста; результат, пришедший после отмены или таймаута,
// отбрасывается.
type JobFunc func(ctx context.Context) (string, error)

// Snapshot — снимок состояния задачи для опроса.
type Snapshot struct {
	ResourceKind string    `json:"resource_kind"`
	ResourceKey  string    `json:"resource_key"`
	State        State     `json:"state"`
	Attempts     int       `json:"attempts"`
	LastRun      time.Time `json:"last_run,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	ResultRef    string    `json:"result_ref,omitempty"`
}

// Config — политика повторов и таймаут задач.
type Config struct {
	MaxAttempts    int           // Максимум попыток на один запуск
	BaseRetryDelay time.Duration // Начальная задержка повтора
	MaxRetryDelay  time.Duration // Верхняя граница задержки
	JobTimeout     time.Duration // Таймаут одной попытки; 0 — без таймаута
}

type key struct {
	kind string
	id   string
}

type job struct {
	state      State
	attempts   int
	lastRun    time.Time
	lastErr    string
	resultRef  string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{} // закрывается при терминальном переходе
}

// Tracker — таблица фоновых задач, защищенная мьютексом.
type Tracker struct {
	mu   sync.Mutex
	jobs map[key]*job
	cfg  Config
	log  *slog.Logger
}

// New создает трекер с заданной политикой повторов.
func New(cfg Config, log *slog.Logger) *Tracker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Tracker{
		jobs: make(map[key]*job),
		cfg:  cfg,
		log:  log,
	}
}

// Schedule запускает задачу для ключа ресурса, если по нему ничего не
// выполняется, и возвращает Accepted. Если задача уже выполняется,
// возвращает Coalesced: вызывающий должен опрашивать существующее
// состояние, а не запускать работу повторно. Проверка и переход
// Idle/Failed -> Running атомарны: из двух гонящихся вызовов ровно
// один получает Accepted.
func (t *Tracker) Schedule(kind, id string, fn JobFunc) ScheduleResult {
	k := key{kind: kind, id: id}

	t.mu.Lock()
	j, ok := t.jobs[k]
	if !ok {
		j = &job{state: StateIdle}
		t.jobs[k] = j
	}
	if j.state == StateRunning {
		t.mu.Unlock()
		return Coalesced
	}
	if j.state == StateFailed && j.attempts < t.cfg.MaxAttempts && j.done != nil {
		// Перезапуск поверх ожидающего повтора: прежний запуск уже не
		// завершится сам, его ожидающие освобождаются здесь, а сам
		// отложенный повтор отбросится проверкой поколения.
		close(j.done)
	}

	j.generation++
	gen := j.generation
	j.state = StateRunning
	j.attempts = 0
	j.lastErr = ""
	j.resultRef = ""
	j.lastRun = time.Now()
	j.done = make(chan struct{})
	ctx := t.newJobContext(j)
	t.mu.Unlock()

	metrics.RunningJobs.WithLabelValues(kind).Inc()
	go t.run(ctx, k, fn, gen, 1)
	return Accepted
}

// newJobContext создает контекст попытки и запоминает cancel в задаче.
// Вызывается под мьютексом.
func (t *Tracker) newJobContext(j *job) context.Context {
	var ctx context.Context
	if t.cfg.JobTimeout > 0 {
		ctx, j.cancel = context.WithTimeout(context.Background(), t.cfg.JobTimeout)
	} else {
		ctx, j.cancel = context.WithCancel(context.Background())
	}
	return ctx
}

// run исполняет одну попытку и применяет переход по её исходу.
func (t *Tracker) run(ctx context.Context, k key, fn JobFunc, gen uint64, attempt int) {
	defer metrics.RunningJobs.WithLabelValues(k.kind).Dec()

	ref, err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		// задача не заметила отмену; её результат уже не нужен
		err = ctx.Err()
	}

	t.mu.Lock()
	j, ok := t.jobs[k]
	if !ok || j.generation != gen {
		// ключ забыт, отменен или перезапущен: поздний колбэк отбрасывается
		t.mu.Unlock()
		return
	}
	j.cancel()

	if err == nil {
		j.state = StateSucceeded
		j.attempts = attempt
		j.resultRef = ref
		j.lastErr = ""
		close(j.done)
		t.mu.Unlock()
		metrics.TrackedJobs.WithLabelValues(k.kind, "succeeded").Inc()
		return
	}

	j.attempts = attempt
	j.lastErr = err.Error()
	j.state = StateFailed

	if attempt >= t.cfg.MaxAttempts {
		// повторы исчерпаны: Failed до явного перезапуска
		close(j.done)
		t.mu.Unlock()
		metrics.TrackedJobs.WithLabelValues(k.kind, "failed").Inc()
		t.log.Error("tracked job failed permanently",
			slog.String("kind", k.kind),
			slog.String("key", k.id),
			slog.Int("attempts", attempt),
			sl.Err(err))
		return
	}

	delay := t.backoff(attempt)
	t.mu.Unlock()

	metrics.TrackedJobs.WithLabelValues(k.kind, "retried").Inc()
	t.log.Warn("tracked job failed, retry scheduled",
		slog.String("kind", k.kind),
		slog.String("key", k.id),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		sl.Err(err))

	time.AfterFunc(delay, func() {
		t.retry(k, fn, gen, attempt+1)
	})
}

// retry переводит задачу Failed -> Running, если за время задержки
// её не отменили, не забыли и не перезапустили.
func (t *Tracker) retry(k key, fn JobFunc, gen uint64, attempt int) {
	t.mu.Lock()
	j, ok := t.jobs[k]
	if !ok || j.generation != gen || j.state != StateFailed {
		t.mu.Unlock()
		return
	}
	j.state = StateRunning
	j.lastRun = time.Now()
	ctx := t.newJobContext(j)
	t.mu.Unlock()

	metrics.RunningJobs.WithLabelValues(k.kind).Inc()
	go t.run(ctx, k, fn, gen, attempt)
}

// backoff возвращает задержку перед повтором: базовая задержка
// удваивается с каждой попыткой и ограничена сверху.
func (t *Tracker) backoff(attempt int) time.Duration {
	delay := t.cfg.BaseRetryDelay << (attempt - 1)
	if delay > t.cfg.MaxRetryDelay {
		delay = t.cfg.MaxRetryDelay
	}
	return delay
}

// Poll возвращает снимок состояния задачи без блокировки.
// Для неизвестного ключа возвращает снимок в состоянии Idle и false.
func (t *Tracker) Poll(kind, id string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{ResourceKind: kind, ResourceKey: id, State: StateIdle}
	j, ok := t.jobs[key{kind: kind, id: id}]
	if !ok {
		return snap, false
	}
	snap.State = j.state
	snap.Attempts = j.attempts
	snap.LastRun = j.lastRun
	snap.LastError = j.lastErr
	snap.ResultRef = j.resultRef
	return snap, true
}

// Cancel отменяет выполняющуюся (или ожидающую повтора) задачу.
// Отмена кооперативная: контекст задачи отменяется, а её поздний
// результат отбрасывается проверкой поколения. Возвращает false,
// если задачи нет или она уже завершилась.
func (t *Tracker) Cancel(kind, id string) bool {
	t.mu.Lock()
	k := key{kind: kind, id: id}
	j, ok := t.jobs[k]
	if !ok || (j.state != StateRunning && j.state != StateFailed) {
		t.mu.Unlock()
		return false
	}
	if j.state == StateFailed && j.attempts >= t.cfg.MaxAttempts {
		// уже терминальный Failed
		t.mu.Unlock()
		return false
	}

	j.generation++
	j.state = StateCancelled
	if j.cancel != nil {
		j.cancel()
	}
	if j.done != nil {
		close(j.done)
	}
	t.mu.Unlock()

	metrics.TrackedJobs.WithLabelValues(kind, "cancelled").Inc()
	return true
}

// Done возвращает канал, закрываемый при терминальном переходе
// текущего запуска (Succeeded, терминальный Failed или Cancelled).
// Позволяет ожидать завершения вместо активного опроса.
func (t *Tracker) Done(kind, id string) (<-chan struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[key{kind: kind, id: id}]
	if !ok || j.done == nil {
		return nil, false
	}
	return j.done, true
}

// Forget удаляет запись о задаче при удалении владеющего ресурса.
// Выполняющаяся задача предварительно отменяется.
func (t *Tracker) Forget(kind, id string) {
	t.mu.Lock()
	k := key{kind: kind, id: id}
	j, ok := t.jobs[k]
	if ok {
		pendingRetry := j.state == StateFailed && j.attempts < t.cfg.MaxAttempts
		if j.state == StateRunning && j.cancel != nil {
			j.cancel()
		}
		if j.done != nil && (j.state == StateRunning || pendingRetry) {
			close(j.done)
		}
		delete(t.jobs, k)
	}
	t.mu.Unlock()
}

// String нужен для логов и ответов API.
func (r ScheduleResult) String() string {
	return string(r)
}

// Err возвращает ошибку последней попытки из снимка, если она есть.
func (s Snapshot) Err() error {
	if s.LastError == "" {
		return nil
	}
	return fmt.Errorf("%s", s.LastError)
}
