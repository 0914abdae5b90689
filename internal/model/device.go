package model

import (
	"time"

	"asm-inventory/internal/compat"
)

// Device is a fully hydrated organization device, identified by its serial number.
type Device struct {
	SerialNumber       string     `json:"serialNumber"`
	ID                 string     `json:"id"`
	Model              string     `json:"deviceModel"`
	ProductType        string     `json:"productType"`
	ProductFamily      string     `json:"productFamily"`
	Status             string     `json:"status"`
	Capacity           string     `json:"deviceCapacity"`
	Color              string     `json:"color"`
	PartNumber         string     `json:"partNumber"`
	OrderNumber        string     `json:"orderNumber"`
	PurchaseSourceType string     `json:"purchaseSourceType"`
	PurchaseSourceID   string     `json:"purchaseSourceId"`
	IMEI               []string   `json:"imei,omitempty"`
	MEID               []string   `json:"meid,omitempty"`
	WiFiMAC            string     `json:"wifiMacAddress,omitempty"`
	BluetoothMAC       string     `json:"bluetoothMacAddress,omitempty"`
	AddedToOrgAt       *time.Time `json:"addedToOrgDateTime,omitempty"`
	OrderedAt          *time.Time `json:"orderDateTime,omitempty"`
	UpdatedAt          *time.Time `json:"updatedDateTime,omitempty"`

	// AssignedServer is shared with every other device pointing at the same MDM server.
	AssignedServer *Server     `json:"assignedServer"`
	Coverages      []Coverage `json:"coverages"`
}

// WarrantyExpiry returns the latest end date among ACTIVE coverages, or nil
// when the device has no active coverage.
func (d *Device) WarrantyExpiry() *time.Time {
	var expiry *time.Time
	for i := range d.Coverages {
		c := &d.Coverages[i]
		if c.Status != CoverageStatusActive || c.EndDate == nil {
			continue
		}
		if expiry == nil || c.EndDate.After(*expiry) {
			end := *c.EndDate
			expiry = &end
		}
	}
	return expiry
}

// ActiveCoverages returns the subset of coverages whose status is ACTIVE, in order.
func (d *Device) ActiveCoverages() []Coverage {
	var active []Coverage
	for _, c := range d.Coverages {
		if c.Status == CoverageStatusActive {
			active = append(active, c)
		}
	}
	return active
}

// SupportedVersions lists the OS major versions this device's model runs.
func (d *Device) SupportedVersions() []compat.Version {
	return compat.Supported(d.ProductType)
}

// SupportsVersion reports whether the device's model runs version v.
func (d *Device) SupportsVersion(v compat.Version) bool {
	return compat.Supports(d.ProductType, v)
}

// ServerName returns the assigned MDM server's name, or "" when unassigned.
func (d *Device) ServerName() string {
	if d.AssignedServer == nil {
		return ""
	}
	return d.AssignedServer.Name
}
