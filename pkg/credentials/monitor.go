package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
)

// ValidateFunc checks a decrypted API key against the provider, typically
// via the organizations probe.
type ValidateFunc func(ctx context.Context, apiKey string) error

// MonitorConfig holds the credential monitor configuration
type MonitorConfig struct {
	Interval     time.Duration `yaml:"interval"`
	SweepTimeout time.Duration `yaml:"sweep_timeout"`
}

// DefaultMonitorConfig returns a default monitor configuration
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Interval:     6 * time.Hour,
		SweepTimeout: 2 * time.Minute,
	}
}

// Monitor periodically re-validates every stored credential so that keys
// revoked on the provider side are noticed before the next booking fails.
// Findings are logged; credentials are never deleted automatically.
type Monitor struct {
	config   *MonitorConfig
	store    Store
	resolver *Resolver
	validate ValidateFunc
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stats   MonitorStats
}

// MonitorStats holds the outcome of the most recent sweep
type MonitorStats struct {
	Checked   int       `json:"checked"`
	Invalid   int       `json:"invalid"`
	LastSweep time.Time `json:"last_sweep"`
}

// NewMonitor creates a credential monitor
func NewMonitor(config *MonitorConfig, store Store, resolver *Resolver, validate ValidateFunc, logger *slog.Logger) *Monitor {
	if config == nil {
		config = DefaultMonitorConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		config:   config,
		store:    store,
		resolver: resolver,
		validate: validate,
		logger:   logger,
	}
}

// Start begins the background validation loop
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("credential monitor is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	m.logger.Info("Starting credential monitor", "interval", m.config.Interval)

	m.wg.Add(1)
	go m.run(ctx)

	return nil
}

// Stop gracefully stops the validation loop
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("Credential monitor stopped")
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep validates every stored credential once. Exposed so deployments can
// trigger an on-demand check in addition to the periodic loop.
func (m *Monitor) Sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, m.config.SweepTimeout)
	defer cancel()

	creds, err := m.store.List(sweepCtx)
	if err != nil {
		m.logger.Error("Failed to list credentials for validation sweep", "error", err)
		return
	}

	stats := MonitorStats{LastSweep: time.Now()}

	for _, cred := range creds {
		select {
		case <-sweepCtx.Done():
			m.logger.Warn("Credential sweep interrupted",
				"checked", stats.Checked,
				"total", len(creds))
			return
		default:
		}

		stats.Checked++
		if err := m.checkCredential(sweepCtx, cred); err != nil {
			stats.Invalid++
			m.logger.Warn("Stored credential failed validation",
				"owner_kind", cred.OwnerKind,
				"owner_id", cred.OwnerID,
				"error", err)
		}
	}

	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()

	m.logger.Info("Credential sweep completed",
		"checked", stats.Checked,
		"invalid", stats.Invalid)
}

func (m *Monitor) checkCredential(ctx context.Context, cred *models.Credential) error {
	apiKey, err := m.resolver.Unseal(cred)
	if err != nil {
		return err
	}
	return m.validate(ctx, apiKey)
}

// Stats returns the outcome of the most recent sweep
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
