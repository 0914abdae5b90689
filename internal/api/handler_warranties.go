package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"asm-inventory/internal/model"
)

// expiringDeviceResponse is the flattened structure for the API response.
type expiringDeviceResponse struct {
	SerialNumber   string     `json:"serialNumber"`
	Model          string     `json:"deviceModel"`
	ProductType    string     `json:"productType"`
	ServerID       *string    `json:"serverId"`
	ServerName     string     `json:"serverName,omitempty"`
	WarrantyExpiry time.Time  `json:"warrantyExpiry"`
	DaysRemaining  int        `json:"daysRemaining"`
	AlertedExpiry  *time.Time `json:"alertedExpiry,omitempty"`
	SyncedAt       time.Time  `json:"syncedAt"`
}

// GetExpiringWarranties handles GET /api/warranties/expiring?days=N. It reads
// the last synced snapshot, defaulting to the alert lead time.
func (h *Handler) GetExpiringWarranties(c *gin.Context) {
	within := h.alertLead
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		within = time.Duration(days) * 24 * time.Hour
	}

	now := h.now().UTC()
	devices, err := h.store.ExpiringDevices(c.Request.Context(), now, within)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve expiring warranties"})
		return
	}

	response := make([]expiringDeviceResponse, 0, len(devices))
	for _, d := range devices {
		response = append(response, toExpiringResponse(d, now))
	}
	c.JSON(http.StatusOK, response)
}

func toExpiringResponse(d model.InventoryDevice, now time.Time) expiringDeviceResponse {
	r := expiringDeviceResponse{
		SerialNumber:  d.SerialNumber,
		Model:         d.Model,
		ProductType:   d.ProductType,
		ServerID:      d.ServerID,
		AlertedExpiry: d.AlertedExpiry,
		SyncedAt:      d.SyncedAt,
	}
	if d.Server != nil {
		r.ServerName = d.Server.Name
	}
	if d.WarrantyExpiry != nil {
		r.WarrantyExpiry = *d.WarrantyExpiry
		y, m, day := now.Date()
		today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		r.DaysRemaining = int(d.WarrantyExpiry.Sub(today).Hours() / 24)
	}
	return r
}
