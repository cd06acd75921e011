package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	hits  int64
}

// MemoryLimiter: ventana fija in-process. Guarda un contador por clave y lo
// resetea cuando arranca una ventana nueva. Un sweep periódico (mismo
// intervalo que la ventana) borra las claves viejas para acotar memoria.
//
// Process-local: con más de una instancia cada una cuenta por separado;
// usar RedisLimiter en ese caso.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*window

	Max    int64
	Window time.Duration

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

func NewMemoryLimiter(max int, win time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultMax
	}
	if win <= 0 {
		win = DefaultWindow
	}
	l := &MemoryLimiter{
		entries: make(map[string]*window),
		Max:     int64(max),
		Window:  win,
		now:     func() time.Time { return time.Now().UTC() },
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	winStart := now.Truncate(l.Window)

	l.mu.Lock()
	w, ok := l.entries[key]
	if !ok || w.start.Before(winStart) {
		w = &window{start: winStart}
		l.entries[key] = w
	}
	w.hits++
	hits := w.hits
	l.mu.Unlock()

	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	ttl := winStart.Add(l.Window).Sub(now)

	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// sweep borra las ventanas vencidas cada l.Window.
func (l *MemoryLimiter) sweep() {
	t := time.NewTicker(l.Window)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			cutoff := l.now().Truncate(l.Window)
			l.mu.Lock()
			for k, w := range l.entries {
				if w.start.Before(cutoff) {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop detiene el sweeper. Idempotente.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}
