package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"asm-inventory/internal/logging"
	"asm-inventory/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// ErrStopped is returned by Dispatch once the workers have shut down.
var ErrStopped = errors.New("notification workers stopped")

// WorkerPool manages a pool of workers sending warranty expiry alerts.
type WorkerPool struct {
	size    int
	jobs    chan string
	stopped chan struct{}
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		stopped: make(chan struct{}),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logging.WithComponent("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(wp.stopped)
	}()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case serial := <-wp.jobs:
			wp.log.Debug().Int("worker", id).Str("serial", serial).Msg("processing warranty alert")
			wp.sendAlertsForDevice(ctx, serial)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues a warranty alert for the device with the given serial.
// It gives up when ctx is done or the workers have stopped.
func (wp *WorkerPool) Dispatch(ctx context.Context, serial string) error {
	select {
	case wp.jobs <- serial:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.stopped:
		return ErrStopped
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

// sendAlertsForDevice notifies every subscription mapped to the device's MDM server.
func (wp *WorkerPool) sendAlertsForDevice(ctx context.Context, serial string) {
	var device model.InventoryDevice
	if err := wp.db.WithContext(ctx).First(&device, "serial_number = ?", serial).Error; err != nil {
		wp.log.Error().Err(err).Str("serial", serial).Msg("failed to load device for alert")
		return
	}
	if device.ServerID == nil || device.WarrantyExpiry == nil {
		wp.log.Debug().Str("serial", serial).Msg("device has no server or warranty, skipping alert")
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_server_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.mdm_server_id = ?", *device.ServerID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Error().Err(err).Str("serial", serial).Msg("failed to fetch subscriptions")
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	wp.log.Info().Str("serial", serial).Int("subscriptions", len(subscriptions)).Msg("sending warranty alerts")

	message := AlertMessage(device)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// AlertMessage renders the push payload for a device whose warranty is about to end.
func AlertMessage(device model.InventoryDevice) string {
	label := device.SerialNumber
	if device.Model != "" {
		label = fmt.Sprintf("%s (%s)", device.Model, device.SerialNumber)
	}
	return fmt.Sprintf("Warranty for %s expires on %s", label, device.WarrantyExpiry.Format("2006-01-02"))
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Select("Servers").Delete(&sub).Error; err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
