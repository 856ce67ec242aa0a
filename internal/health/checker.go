package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status values reported per dependency.
const (
	StatusUnknown  = "unknown"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// ProbeFunc reports whether a dependency is reachable.
type ProbeFunc func(ctx context.Context) error

// Probe is a named dependency check. Optional probes never make the
// service unready; the analyzer degrades to heuristics without them.
type Probe struct {
	Name     string
	Check    ProbeFunc
	Optional bool
}

// DependencyStatus is the last known state of one dependency.
type DependencyStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Optional  bool      `json:"optional"`
	FailCount int       `json:"fail_count"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(name string, success bool)

// Checker runs periodic dependency probes.
type Checker struct {
	probes    []Probe
	cfg       Config
	mu        sync.Mutex
	state     map[string]*DependencyStatus
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a new Checker for the given probes.
func New(probes []Probe, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	state := make(map[string]*DependencyStatus, len(probes))
	for _, p := range probes {
		state[p.Name] = &DependencyStatus{Name: p.Name, Status: StatusUnknown, Optional: p.Optional}
	}
	return &Checker{
		probes: probes,
		cfg:    cfg,
		state:  state,
		logger: logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the check loop until ctx is cancelled. The first round runs
// immediately.
func (h *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		h.CheckAll(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll probes every dependency concurrently and waits for all of them.
func (h *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range h.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p.Check(pctx)
			cancel()
			h.record(p.Name, err)
		}(p)
	}
	wg.Wait()
}

func (h *Checker) record(name string, err error) {
	if h.onMetrics != nil {
		h.onMetrics(name, err == nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state[name]
	prevCount := st.FailCount
	st.CheckedAt = time.Now().UTC()

	if err == nil {
		st.FailCount = 0
		st.LastError = ""
		if prevCount >= h.cfg.FailThreshold {
			// Transition: degraded → healthy
			h.logger.Info("health: recovered", zap.String("dependency", name))
		}
		st.Status = StatusHealthy
		return
	}

	st.FailCount++
	st.LastError = err.Error()
	switch {
	case st.FailCount == h.cfg.FailThreshold:
		// Transition: healthy → degraded (exactly at threshold)
		st.Status = StatusDegraded
		h.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", st.FailCount),
			zap.Error(err),
		)
	case st.Status == StatusUnknown:
		st.Status = StatusDegraded
	}
}

// Snapshot returns the status of every dependency sorted by name.
func (h *Checker) Snapshot() []DependencyStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]DependencyStatus, 0, len(h.state))
	for _, st := range h.state {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ready reports whether every required dependency is healthy or not yet
// checked.
func (h *Checker) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, st := range h.state {
		if !st.Optional && st.Status == StatusDegraded {
			return false
		}
	}
	return true
}
