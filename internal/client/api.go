package client

import (
	"bytes"
	"encoding/json"
)

// deviceResponse models GET orgDevices/{serial}. Data stays raw so an empty
// object can be told apart from a populated one.
type deviceResponse struct {
	Data json.RawMessage `json:"data"`
}

type deviceResource struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes deviceAttributes `json:"attributes"`
}

type deviceAttributes struct {
	SerialNumber        string   `json:"serialNumber"`
	AddedToOrgDateTime  string   `json:"addedToOrgDateTime"`
	UpdatedDateTime     string   `json:"updatedDateTime"`
	DeviceModel         string   `json:"deviceModel"`
	ProductFamily       string   `json:"productFamily"`
	ProductType         string   `json:"productType"`
	DeviceCapacity      string   `json:"deviceCapacity"`
	PartNumber          string   `json:"partNumber"`
	OrderNumber         string   `json:"orderNumber"`
	Color               string   `json:"color"`
	Status              string   `json:"status"`
	OrderDateTime       string   `json:"orderDateTime"`
	IMEI                []string `json:"imei"`
	MEID                []string `json:"meid"`
	PurchaseSourceID    string   `json:"purchaseSourceId"`
	PurchaseSourceType  string   `json:"purchaseSourceType"`
	WifiMacAddress      string   `json:"wifiMacAddress"`
	BluetoothMacAddress string   `json:"bluetoothMacAddress"`
}

// serverResponse models GET orgDevices/{serial}/assignedServer.
type serverResponse struct {
	Data json.RawMessage `json:"data"`
}

type serverResource struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes serverAttributes `json:"attributes"`
}

type serverAttributes struct {
	ServerName      string `json:"serverName"`
	ServerType      string `json:"serverType"`
	CreatedDateTime string `json:"createdDateTime"`
	UpdatedDateTime string `json:"updatedDateTime"`
}

// coverageResponse models GET orgDevices/{serial}/appleCareCoverage.
type coverageResponse struct {
	Data []coverageResource `json:"data"`
}

type coverageResource struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes coverageAttributes `json:"attributes"`
}

type coverageAttributes struct {
	Description            string `json:"description"`
	Status                 string `json:"status"`
	StartDateTime          string `json:"startDateTime"`
	EndDateTime            string `json:"endDateTime"`
	AgreementNumber        string `json:"agreementNumber"`
	IsRenewable            bool   `json:"isRenewable"`
	IsCanceled             bool   `json:"isCanceled"`
	PaymentType            string `json:"paymentType"`
	ContractCancelDateTime string `json:"contractCancelDateTime"`
}

// pageResponse models any paginated listing.
type pageResponse struct {
	Data  []json.RawMessage `json:"data"`
	Links struct {
		Self string  `json:"self"`
		Next *string `json:"next"`
	} `json:"links"`
	Meta struct {
		Paging struct {
			Limit      int    `json:"limit"`
			NextCursor string `json:"nextCursor"`
		} `json:"paging"`
	} `json:"meta"`
}

// DeviceEntry is a lightweight, unhydrated device listing entry.
type DeviceEntry struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// isEmptyPayload reports whether a data member is absent, null, or {}.
func isEmptyPayload(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	return len(m) == 0
}
