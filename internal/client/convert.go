package client

import (
	"fmt"
	"time"

	"asm-inventory/internal/model"
)

// parseTimestamp converts an ISO-8601 date-time into a time.Time. Empty input yields nil.
func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Some coverage fields arrive as bare dates.
		t, err = time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
	}
	return &t, nil
}

// parseDate converts an ISO-8601 date-time into the calendar date it names,
// in the timestamp's own offset, at midnight UTC.
func parseDate(s string) (*time.Time, error) {
	t, err := parseTimestamp(s)
	if err != nil || t == nil {
		return nil, err
	}
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date, nil
}

func toServer(r serverResource) (*model.Server, error) {
	created, err := parseTimestamp(r.Attributes.CreatedDateTime)
	if err != nil {
		return nil, fmt.Errorf("server %s createdDateTime: %w", r.ID, err)
	}
	updated, err := parseTimestamp(r.Attributes.UpdatedDateTime)
	if err != nil {
		return nil, fmt.Errorf("server %s updatedDateTime: %w", r.ID, err)
	}

	return &model.Server{
		ID:        r.ID,
		Name:      r.Attributes.ServerName,
		Type:      r.Attributes.ServerType,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func toCoverage(r coverageResource) (model.Coverage, error) {
	a := r.Attributes

	start, err := parseDate(a.StartDateTime)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s startDateTime: %w", r.ID, err)
	}
	end, err := parseDate(a.EndDateTime)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s endDateTime: %w", r.ID, err)
	}
	canceled, err := parseDate(a.ContractCancelDateTime)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s contractCancelDateTime: %w", r.ID, err)
	}

	return model.Coverage{
		ID:                 r.ID,
		Description:        a.Description,
		Status:             a.Status,
		StartDate:          start,
		EndDate:            end,
		AgreementNumber:    a.AgreementNumber,
		IsRenewable:        a.IsRenewable,
		IsCanceled:         a.IsCanceled,
		PaymentType:        a.PaymentType,
		ContractCancelDate: canceled,
	}, nil
}

func toDevice(serial string, r deviceResource, server *model.Server, coverages []model.Coverage) (*model.Device, error) {
	a := r.Attributes

	added, err := parseTimestamp(a.AddedToOrgDateTime)
	if err != nil {
		return nil, fmt.Errorf("device %s addedToOrgDateTime: %w", serial, err)
	}
	ordered, err := parseTimestamp(a.OrderDateTime)
	if err != nil {
		return nil, fmt.Errorf("device %s orderDateTime: %w", serial, err)
	}
	updated, err := parseTimestamp(a.UpdatedDateTime)
	if err != nil {
		return nil, fmt.Errorf("device %s updatedDateTime: %w", serial, err)
	}

	return &model.Device{
		SerialNumber:       serial,
		ID:                 r.ID,
		Model:              a.DeviceModel,
		ProductType:        a.ProductType,
		ProductFamily:      a.ProductFamily,
		Status:             a.Status,
		Capacity:           a.DeviceCapacity,
		Color:              a.Color,
		PartNumber:         a.PartNumber,
		OrderNumber:        a.OrderNumber,
		PurchaseSourceType: a.PurchaseSourceType,
		PurchaseSourceID:   a.PurchaseSourceID,
		IMEI:               a.IMEI,
		MEID:               a.MEID,
		WiFiMAC:            a.WifiMacAddress,
		BluetoothMAC:       a.BluetoothMacAddress,
		AddedToOrgAt:       added,
		OrderedAt:          ordered,
		UpdatedAt:          updated,
		AssignedServer:     server,
		Coverages:          coverages,
	}, nil
}
