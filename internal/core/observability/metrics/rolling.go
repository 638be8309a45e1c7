package metrics

import (
	"sync"
	"time"
)

const DefaultWindow = 64

// Window keeps the last N samples plus lifetime totals.
type Window struct {
	samples []float64
	next    int
	filled  int
	total   float64
	count   int64
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Window{samples: make([]float64, size)}
}

func (w *Window) Add(v float64) {
	w.samples[w.next] = v
	w.next = (w.next + 1) % len(w.samples)
	w.filled = min(w.filled+1, len(w.samples))
	w.total += v
	w.count++
}

// Average is the mean of the samples still in the window.
func (w *Window) Average() float64 {
	if w.filled == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.samples[:w.filled] {
		sum += v
	}
	return sum / float64(w.filled)
}

func (w *Window) Total() float64 { return w.total }

func (w *Window) Count() int64 { return w.count }

// Rolling is an in-memory Collector for tests and the local harness.
type Rolling struct {
	mu       sync.Mutex
	size     int
	sent     *Window
	received *Window
	timings  map[string]*Window
	counts   map[string]int64
}

func NewRolling(size int) *Rolling {
	return &Rolling{
		size:     size,
		sent:     NewWindow(size),
		received: NewWindow(size),
		timings:  make(map[string]*Window),
		counts:   make(map[string]int64),
	}
}

func (r *Rolling) BytesSent(n int) {
	r.mu.Lock()
	r.sent.Add(float64(n))
	r.mu.Unlock()
}

func (r *Rolling) BytesReceived(n int) {
	r.mu.Lock()
	r.received.Add(float64(n))
	r.mu.Unlock()
}

func (r *Rolling) Timing(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.timings[name]
	if !ok {
		w = NewWindow(r.size)
		r.timings[name] = w
	}
	w.Add(float64(d))
}

func (r *Rolling) Count(name string, delta int64) {
	r.mu.Lock()
	r.counts[name] += delta
	r.mu.Unlock()
}

// Sent reports the rolling average and lifetime total of bytes sent.
func (r *Rolling) Sent() (avg float64, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent.Average(), int64(r.sent.Total())
}

func (r *Rolling) Received() (avg float64, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received.Average(), int64(r.received.Total())
}

// AverageTiming returns zero for names never recorded.
func (r *Rolling) AverageTiming(name string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.timings[name]
	if !ok {
		return 0
	}
	return time.Duration(w.Average())
}

func (r *Rolling) Counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}
