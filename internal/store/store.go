package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asm-inventory/internal/logging"
	"asm-inventory/internal/model"
)

// Store defines the interface for all snapshot database operations.
type Store interface {
	UpsertServer(ctx context.Context, server *model.Server) error
	UpsertDevices(ctx context.Context, now time.Time, devices []*model.Device) error
	ExpiringDevices(ctx context.Context, now time.Time, within time.Duration) ([]model.InventoryDevice, error)
	DevicesNeedingAlert(ctx context.Context, now time.Time, within time.Duration) ([]model.InventoryDevice, error)
	MarkAlerted(ctx context.Context, serial string, expiry time.Time) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertServer inserts or refreshes one MDM server row.
func (s *gormStore) UpsertServer(ctx context.Context, server *model.Server) error {
	row := serverRow(server)
	if err := upsertServers(s.db.WithContext(ctx), []model.MDMServer{row}); err != nil {
		return fmt.Errorf("failed to upsert server %s: %w", server.ID, err)
	}
	return nil
}

// batchSize bounds the rows per INSERT so the statement stays under the
// driver's bind-parameter limit (SQLite 32766, PostgreSQL 65535).
const batchSize = 500

// UpsertDevices writes the snapshot of every device in one transaction.
// Device rows are overwritten except for their alert bookkeeping, and each
// device's coverage rows are replaced wholesale. When a serial appears more
// than once, the last occurrence wins.
func (s *gormStore) UpsertDevices(ctx context.Context, now time.Time, devices []*model.Device) error {
	devices = dedupeBySerial(devices)
	if len(devices) == 0 {
		return nil
	}
	log := logging.WithComponent("store")

	servers := make(map[string]model.MDMServer)
	rows := make([]model.InventoryDevice, 0, len(devices))
	serials := make([]string, 0, len(devices))
	var coverages []model.InventoryCoverage
	for _, d := range devices {
		if d.AssignedServer != nil {
			servers[d.AssignedServer.ID] = serverRow(d.AssignedServer)
		}
		rows = append(rows, deviceRow(d, now))
		serials = append(serials, d.SerialNumber)
		coverages = append(coverages, coverageRows(d)...)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(servers) > 0 {
			serverList := make([]model.MDMServer, 0, len(servers))
			for _, srv := range servers {
				serverList = append(serverList, srv)
			}
			if err := upsertServers(tx, serverList); err != nil {
				return fmt.Errorf("batch upsert servers failed: %w", err)
			}
		}

		log.Debug().Int("devices", len(rows)).Int("coverages", len(coverages)).Msg("batch upserting devices")
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "serial_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"server_id", "model", "product_type", "product_family", "status",
				"color", "capacity", "warranty_expiry", "synced_at",
			}),
		}).CreateInBatches(&rows, batchSize).Error; err != nil {
			return fmt.Errorf("batch upsert devices failed: %w", err)
		}

		for start := 0; start < len(serials); start += batchSize {
			end := min(start+batchSize, len(serials))
			if err := tx.Where("serial_number IN ?", serials[start:end]).Delete(&model.InventoryCoverage{}).Error; err != nil {
				return fmt.Errorf("failed to clear coverage: %w", err)
			}
		}
		if len(coverages) > 0 {
			if err := tx.CreateInBatches(&coverages, batchSize).Error; err != nil {
				return fmt.Errorf("failed to write coverage: %w", err)
			}
		}
		return nil
	})
}

// dedupeBySerial keeps the last device per serial, in first-seen order.
func dedupeBySerial(devices []*model.Device) []*model.Device {
	index := make(map[string]int, len(devices))
	out := make([]*model.Device, 0, len(devices))
	for _, d := range devices {
		if i, ok := index[d.SerialNumber]; ok {
			out[i] = d
			continue
		}
		index[d.SerialNumber] = len(out)
		out = append(out, d)
	}
	return out
}

// ExpiringDevices returns devices whose warranty ends between today and now+within, soonest first.
func (s *gormStore) ExpiringDevices(ctx context.Context, now time.Time, within time.Duration) ([]model.InventoryDevice, error) {
	var devices []model.InventoryDevice
	err := s.expiringQuery(ctx, now, within).
		Preload("Server").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring devices: %w", err)
	}
	return devices, nil
}

// DevicesNeedingAlert is ExpiringDevices minus devices already alerted for their current expiry date.
func (s *gormStore) DevicesNeedingAlert(ctx context.Context, now time.Time, within time.Duration) ([]model.InventoryDevice, error) {
	var devices []model.InventoryDevice
	err := s.expiringQuery(ctx, now, within).
		Where("alerted_expiry IS NULL OR alerted_expiry <> warranty_expiry").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query devices needing alert: %w", err)
	}
	return devices, nil
}

// MarkAlerted records that an alert went out for the device's expiry date.
func (s *gormStore) MarkAlerted(ctx context.Context, serial string, expiry time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.InventoryDevice{}).
		Where("serial_number = ?", serial).
		Update("alerted_expiry", expiry.UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to mark %s alerted: %w", serial, err)
	}
	return nil
}

func (s *gormStore) expiringQuery(ctx context.Context, now time.Time, within time.Duration) *gorm.DB {
	// Expiry values are calendar dates, so a warranty ending today still counts.
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.db.WithContext(ctx).
		Where("warranty_expiry IS NOT NULL").
		Where("warranty_expiry >= ? AND warranty_expiry <= ?", today, now.UTC().Add(within)).
		Order("warranty_expiry ASC")
}

func upsertServers(tx *gorm.DB, servers []model.MDMServer) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "updated_at"}),
	}).CreateInBatches(&servers, batchSize).Error
}
