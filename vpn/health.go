// Package vpn provides tunnel management for the WireGuard Manager.
// This file contains the HealthChecker, which watches peer handshake ages
// reported by a StatsProvider.
package vpn

import (
	"context"
	"sync"
	"time"

	"github.com/yllada/wg-manager/common"
)

// HealthState represents the liveness of a peer, judged by the age of its
// latest handshake.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

// String returns a human-readable representation of the health state.
func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "Healthy"
	case HealthDegraded:
		return "Degraded"
	case HealthUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// HealthConfig holds configuration for the health checker.
type HealthConfig struct {
	// CheckInterval is how often to poll live statistics.
	CheckInterval time.Duration
	// FreshWithin is the handshake age below which a peer is healthy.
	FreshWithin time.Duration
	// StaleAfter is the handshake age above which a peer is unhealthy.
	// Ages in between are degraded.
	StaleAfter time.Duration
}

// DefaultHealthConfig returns sensible defaults for health checking.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		CheckInterval: common.WatchInterval,
		FreshWithin:   common.HandshakeFresh,
		StaleAfter:    common.HandshakeStale,
	}
}

// Classify maps a handshake time (Unix seconds, 0 for never) to a state.
func (c HealthConfig) Classify(lastHandshake int64, now time.Time) HealthState {
	if lastHandshake == 0 {
		return HealthUnknown
	}
	age := now.Sub(time.Unix(lastHandshake, 0))
	switch {
	case age <= c.FreshWithin:
		return HealthHealthy
	case age <= c.StaleAfter:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

// PeerHealth tracks the health of one peer.
type PeerHealth struct {
	PublicKey     string
	State         HealthState
	LastCheck     time.Time
	LastHandshake time.Time
	RxBytes       uint64
	TxBytes       uint64
}

// HealthChecker polls live statistics of one interface and reports state
// changes per peer.
type HealthChecker struct {
	mu             sync.RWMutex
	config         HealthConfig
	stats          common.StatsProvider
	interfaceName  string
	running        bool
	cancel         context.CancelFunc
	done           chan struct{}
	peerHealth     map[string]*PeerHealth
	onHealthChange func(publicKey string, oldState, newState HealthState)
	onCheckFailed  func(err error)
	now            func() time.Time
}

// NewHealthChecker creates a health checker for interfaceName.
func NewHealthChecker(stats common.StatsProvider, interfaceName string, config HealthConfig) *HealthChecker {
	return &HealthChecker{
		config:        config,
		stats:         stats,
		interfaceName: interfaceName,
		peerHealth:    make(map[string]*PeerHealth),
		now:           time.Now,
	}
}

// SetOnHealthChange sets a callback for health state changes. It is called
// synchronously from the polling goroutine.
func (hc *HealthChecker) SetOnHealthChange(callback func(publicKey string, oldState, newState HealthState)) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.onHealthChange = callback
}

// SetOnCheckFailed sets a callback for failed statistics queries.
func (hc *HealthChecker) SetOnCheckFailed(callback func(err error)) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.onCheckFailed = callback
}

// Start begins the polling loop. It stops when ctx is cancelled or Stop is
// called.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.mu.Lock()
	if hc.running {
		hc.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	hc.running = true
	hc.cancel = cancel
	hc.done = make(chan struct{})
	done := hc.done
	hc.mu.Unlock()

	common.LogInfo("Health checker started for %s (interval: %v)", hc.interfaceName, hc.config.CheckInterval)

	go hc.runLoop(ctx, done)
}

// Stop stops the polling loop and waits for it to exit.
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	hc.cancel()
	done := hc.done
	hc.mu.Unlock()

	<-done
	common.LogInfo("Health checker stopped")
}

// IsRunning returns whether the health checker is currently running.
func (hc *HealthChecker) IsRunning() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.running
}

// GetHealth returns the current health of a peer.
func (hc *HealthChecker) GetHealth(publicKey string) (*PeerHealth, bool) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	health, exists := hc.peerHealth[publicKey]
	if !exists {
		return nil, false
	}
	healthCopy := *health
	return &healthCopy, true
}

func (hc *HealthChecker) runLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		hc.mu.Lock()
		hc.running = false
		hc.mu.Unlock()
		close(done)
	}()

	hc.CheckNow(ctx)

	ticker := time.NewTicker(hc.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.CheckNow(ctx)
		}
	}
}

// CheckNow polls statistics once and updates every peer.
func (hc *HealthChecker) CheckNow(ctx context.Context) {
	stats, err := hc.stats.LiveStats(ctx, hc.interfaceName)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		common.LogWarn("Health check failed for %s: %v", hc.interfaceName, err)
		hc.mu.RLock()
		cb := hc.onCheckFailed
		hc.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
		return
	}

	now := hc.now()
	type change struct {
		publicKey string
		from, to  HealthState
	}
	var changes []change

	hc.mu.Lock()
	seen := make(map[string]bool, len(stats))
	for _, s := range stats {
		seen[s.PublicKey] = true
		health, exists := hc.peerHealth[s.PublicKey]
		if !exists {
			health = &PeerHealth{PublicKey: s.PublicKey, State: HealthUnknown}
			hc.peerHealth[s.PublicKey] = health
		}

		oldState := health.State
		health.LastCheck = now
		health.RxBytes = s.RxBytes
		health.TxBytes = s.TxBytes
		if s.LastHandshake != 0 {
			health.LastHandshake = time.Unix(s.LastHandshake, 0)
		}
		health.State = hc.config.Classify(s.LastHandshake, now)

		if oldState != health.State {
			changes = append(changes, change{s.PublicKey, oldState, health.State})
		}
	}
	for pub := range hc.peerHealth {
		if !seen[pub] {
			delete(hc.peerHealth, pub)
		}
	}
	cb := hc.onHealthChange
	hc.mu.Unlock()

	for _, c := range changes {
		common.LogInfo("Health state changed for %s: %s -> %s", c.publicKey, c.from, c.to)
		if cb != nil {
			cb(c.publicKey, c.from, c.to)
		}
	}
}

// UpdateConfig updates the health checker configuration. The interval
// applies from the next Start.
func (hc *HealthChecker) UpdateConfig(config HealthConfig) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.config = config
}
