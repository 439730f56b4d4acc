package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
)

const probeTimeout = 10 * time.Second

// Prober checks backend availability.
type Prober interface {
	CheckHealth(ctx context.Context) gateway.Health
}

// Monitor probes the backend on a cron schedule and caches the last result.
type Monitor struct {
	prober Prober
	spec   string
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	// initial tracks the probe Start runs outside the schedule.
	initial sync.WaitGroup

	mu   sync.RWMutex
	last gateway.Health
	seen bool
}

// New creates a monitor for the given cron spec, e.g. "@every 30s".
func New(prober Prober, spec string) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		prober: prober,
		spec:   spec,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logging.Component("monitor"),
	}
}

// Start registers the probe job and runs one probe right away.
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc(m.spec, func() { m.Probe() }); err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Info().Str("spec", m.spec).Msg("backend health monitor started")

	m.initial.Add(1)
	go func() {
		defer m.initial.Done()
		m.Probe()
	}()
	return nil
}

// Probe runs one health check and records it.
func (m *Monitor) Probe() gateway.Health {
	ctx, cancel := context.WithTimeout(m.ctx, probeTimeout)
	defer cancel()

	health := m.prober.CheckHealth(ctx)

	m.mu.Lock()
	changed := !m.seen || m.last.Available != health.Available
	m.last = health
	m.seen = true
	m.mu.Unlock()

	if changed {
		if health.Available {
			m.logger.Info().Str("status", health.Status).Str("model", health.Model).Msg("backend available")
		} else {
			m.logger.Warn().Str("error", health.Error).Msg("backend unavailable")
		}
	}
	return health
}

// Last returns the most recent probe result, if any.
func (m *Monitor) Last() (gateway.Health, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.seen
}

// Stop halts the schedule, cancels running probes and waits for them.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
	m.cancel()
	m.initial.Wait()
	m.logger.Info().Msg("backend health monitor stopped")
}
