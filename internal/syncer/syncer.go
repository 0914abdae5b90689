// Package syncer periodically mirrors the organization inventory into the
// snapshot store and dispatches warranty expiry alerts.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"asm-inventory/config"
	"asm-inventory/internal/client"
	"asm-inventory/internal/logging"
	"asm-inventory/internal/model"
	"asm-inventory/internal/notification"
	"asm-inventory/internal/store"
)

// Dispatcher queues warranty alerts for delivery.
type Dispatcher interface {
	Start(ctx context.Context)
	Dispatch(ctx context.Context, serial string) error
}

// Summary reports what one sync cycle did.
type Summary struct {
	Servers       int
	FailedServers int
	Devices       int
	FailedDevices int
	Alerts        int
}

// Service orchestrates the sync cycle.
type Service struct {
	cfg        *config.Config
	store      store.Store
	client     *client.Client
	dispatcher Dispatcher
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher replaces the web push worker pool. A nil dispatcher disables alerts.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithClock overrides the time source used to stamp snapshots and evaluate expiry windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates and initializes a new sync service. Alerts go through a
// web push worker pool when VAPID keys are configured.
func NewService(cfg *config.Config, st store.Store, c *client.Client, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		store:  st,
		client: c,
		now:    time.Now,
		log:    logging.WithComponent("syncer"),
	}

	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions := webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		s.dispatcher = notification.NewWorkerPool(cfg.WorkerPool.Size, st.DB(), &webpushOptions)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the alert workers and syncs once at start, then every sync interval.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Sync.Enabled {
		s.log.Info().Msg("sync is disabled, not starting")
		return
	}
	s.log.Info().Dur("interval", s.cfg.Sync.Interval).Msg("starting sync service")

	if s.dispatcher != nil {
		s.dispatcher.Start(ctx)
	}

	s.runCycle(ctx)

	timer := time.NewTimer(s.cfg.Sync.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sync service shutting down")
			return
		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.cfg.Sync.Interval)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	summary, err := s.SyncOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sync cycle failed")
		return
	}
	s.log.Info().
		Int("servers", summary.Servers).
		Int("failed_servers", summary.FailedServers).
		Int("devices", summary.Devices).
		Int("failed_devices", summary.FailedDevices).
		Int("alerts", summary.Alerts).
		Msg("sync cycle finished")
}

// SyncOnce performs a single sync cycle against a fresh-cache client, so
// each cycle observes current remote data. A failing server listing or
// device fetch is logged and skipped; authentication failures abort the cycle.
func (s *Service) SyncOnce(ctx context.Context) (Summary, error) {
	var summary Summary
	now := s.now().UTC()
	c := s.client.WithFreshCache()

	if err := c.EnsureAuthenticated(ctx); err != nil {
		return summary, err
	}

	// Step 1: decide which servers to walk
	serverIDs, err := s.serverIDs(ctx, c)
	if err != nil {
		return summary, err
	}
	summary.Servers = len(serverIDs)

	// Step 2: hydrate every device of every server
	var devices []*model.Device
	seen := make(map[string]struct{})
	for _, id := range serverIDs {
		entries, err := c.FetchDevicesForServer(ctx, id)
		if err != nil {
			if fatal(ctx, err) {
				return summary, err
			}
			s.log.Error().Err(err).Str("server_id", id).Msg("failed to list server devices, skipping server")
			summary.FailedServers++
			continue
		}

		for _, entry := range entries {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			device, err := c.FetchDevice(ctx, entry.ID)
			if err != nil {
				if fatal(ctx, err) {
					return summary, err
				}
				s.log.Error().Err(err).Str("serial", entry.ID).Msg("failed to fetch device, skipping")
				summary.FailedDevices++
				continue
			}
			if device == nil {
				s.log.Warn().Str("serial", entry.ID).Msg("listed device not found")
				continue
			}
			seen[entry.ID] = struct{}{}
			devices = append(devices, device)
		}
	}
	summary.Devices = len(devices)

	// Step 3: persist the snapshot
	if err := s.store.UpsertDevices(ctx, now, devices); err != nil {
		return summary, err
	}

	// Step 4: queue warranty alerts
	alerts, err := s.dispatchAlerts(ctx, now)
	summary.Alerts = alerts
	return summary, err
}

func (s *Service) serverIDs(ctx context.Context, c *client.Client) ([]string, error) {
	if len(s.cfg.Sync.ServerIDs) > 0 {
		return uniqueIDs(s.cfg.Sync.ServerIDs), nil
	}

	servers, err := c.FetchServers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(servers))
	for _, srv := range servers {
		if err := s.store.UpsertServer(ctx, srv); err != nil {
			return nil, err
		}
		ids = append(ids, srv.ID)
	}
	return ids, nil
}

// uniqueIDs drops repeated IDs, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) dispatchAlerts(ctx context.Context, now time.Time) (int, error) {
	if s.dispatcher == nil {
		s.log.Debug().Msg("alerts disabled, no dispatcher configured")
		return 0, nil
	}

	pending, err := s.store.DevicesNeedingAlert(ctx, now, s.cfg.Alerts.Lead)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range pending {
		if err := s.dispatcher.Dispatch(ctx, d.SerialNumber); err != nil {
			return sent, fmt.Errorf("failed to queue alert for %s: %w", d.SerialNumber, err)
		}
		if err := s.store.MarkAlerted(ctx, d.SerialNumber, *d.WarrantyExpiry); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		s.log.Info().Int("devices", sent).Msg("dispatched warranty alerts")
	}
	return sent, nil
}

// fatal reports whether err should end the whole cycle rather than one item.
func fatal(ctx context.Context, err error) bool {
	var authErr *client.AuthenticationError
	return errors.As(err, &authErr) || ctx.Err() != nil
}
