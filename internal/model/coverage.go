package model

import "time"

const (
	CoverageStatusActive   = "ACTIVE"
	CoverageStatusInactive = "INACTIVE"
	CoverageStatusExpired  = "EXPIRED"
)

// Coverage is a point-in-time snapshot of a warranty or support contract.
// Dates are calendar dates at midnight UTC.
type Coverage struct {
	ID                 string     `json:"id"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	AgreementNumber    string     `json:"agreementNumber,omitempty"`
	IsRenewable        bool       `json:"isRenewable"`
	IsCanceled         bool       `json:"isCanceled"`
	PaymentType        string     `json:"paymentType,omitempty"`
	ContractCancelDate *time.Time `json:"contractCancelDate,omitempty"`
}
