package store

import (
	"time"

	"asm-inventory/internal/model"
)

// serverRow converts a fetched server into its persisted form.
func serverRow(s *model.Server) model.MDMServer {
	row := model.MDMServer{ID: s.ID, Name: s.Name, Type: s.Type}
	if s.CreatedAt != nil {
		row.CreatedAt = *s.CreatedAt
	}
	if s.UpdatedAt != nil {
		row.UpdatedAt = *s.UpdatedAt
	}
	return row
}

// deviceRow converts a hydrated device into its snapshot row, with the
// warranty expiry computed once at write time.
func deviceRow(d *model.Device, now time.Time) model.InventoryDevice {
	row := model.InventoryDevice{
		SerialNumber:   d.SerialNumber,
		Model:          d.Model,
		ProductType:    d.ProductType,
		ProductFamily:  d.ProductFamily,
		Status:         d.Status,
		Color:          d.Color,
		Capacity:       d.Capacity,
		WarrantyExpiry: d.WarrantyExpiry(),
		SyncedAt:       now,
	}
	if d.AssignedServer != nil {
		id := d.AssignedServer.ID
		row.ServerID = &id
	}
	return row
}

func coverageRows(d *model.Device) []model.InventoryCoverage {
	rows := make([]model.InventoryCoverage, 0, len(d.Coverages))
	for _, c := range d.Coverages {
		rows = append(rows, model.InventoryCoverage{
			SerialNumber:    d.SerialNumber,
			CoverageID:      c.ID,
			Description:     c.Description,
			Status:          c.Status,
			StartDate:       c.StartDate,
			EndDate:         c.EndDate,
			AgreementNumber: c.AgreementNumber,
			IsRenewable:     c.IsRenewable,
			IsCanceled:      c.IsCanceled,
		})
	}
	return rows
}
