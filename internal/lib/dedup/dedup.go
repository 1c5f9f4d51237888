// Package dedup реализует ограниченное по размеру и времени множество
// недавно виденных ключей. Используется для подавления повторяющихся
// сообщений лога: компонент создается явно и внедряется зависимостью,
// глобального изменяемого состояния нет.
package dedup

import (
	"sync"
	"time"
)

// Window — потокобезопасное множество ключей с окном времени и верхней
// границей размера. Ключ "пропускается" не чаще одного раза за окно.
type Window struct {
	mu         sync.Mutex
	seen       map[string]time.Time
	window     time.Duration
	maxEntries int
	now        func() time.Time
}

// New создает Window с заданным окном и максимальным числом записей.
func New(window time.Duration, maxEntries int) *Window {
	return &Window{
		seen:       make(map[string]time.Time),
		window:     window,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Allow сообщает, можно ли пропустить ключ. Первый вызов для ключа в
// пределах окна возвращает true, повторные — false до истечения окна.
func (w *Window) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if last, ok := w.seen[key]; ok && now.Sub(last) < w.window {
		return false
	}
	w.sweep(now)
	w.seen[key] = now
	return true
}

// Len возвращает текущее число записей в окне.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// sweep удаляет устаревшие записи; при переполнении очищает все окно,
// чтобы размер оставался ограниченным.
func (w *Window) sweep(now time.Time) {
	for k, last := range w.seen {
		if now.Sub(last) >= w.window {
			delete(w.seen, k)
		}
	}
	if len(w.seen) >= w.maxEntries {
		w.seen = make(map[string]time.Time)
	}
}
