package model

import "time"

// MDMServer is the persisted row for an MDM server.
type MDMServer struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:256;not null"`
	Type      string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// InventoryDevice is the persisted snapshot of a device as of its last sync.
type InventoryDevice struct {
	SerialNumber   string     `gorm:"primaryKey;size:64"`
	ServerID       *string    `gorm:"index;size:64"`
	Model          string     `gorm:"size:256"`
	ProductType    string     `gorm:"size:64"`
	ProductFamily  string     `gorm:"size:64"`
	Status         string     `gorm:"size:32"`
	Color          string     `gorm:"size:64"`
	Capacity       string     `gorm:"size:64"`
	WarrantyExpiry *time.Time `gorm:"index"`
	AlertedExpiry  *time.Time
	SyncedAt       time.Time `gorm:"not null"`

	// Associations
	Server    *MDMServer          `gorm:"foreignKey:ServerID"`
	Coverages []InventoryCoverage `gorm:"foreignKey:SerialNumber;constraint:OnDelete:CASCADE"`
}

// InventoryCoverage is a persisted coverage row, replaced wholesale on every sync of its device.
type InventoryCoverage struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	SerialNumber    string `gorm:"index;size:64;not null"`
	CoverageID      string `gorm:"size:128"`
	Description     string `gorm:"size:256"`
	Status          string `gorm:"size:32;not null"`
	StartDate       *time.Time
	EndDate         *time.Time
	AgreementNumber string `gorm:"size:128"`
	IsRenewable     bool
	IsCanceled      bool
}
