package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asm-inventory/internal/compat"
	"asm-inventory/internal/model"
)

// DeviceResponse represents the API response for a single device.
type DeviceResponse struct {
	*model.Device
	WarrantyExpiry    *time.Time       `json:"warrantyExpiry"`
	SupportedVersions []compat.Version `json:"supportedVersions"`
	SupportsVersion   *bool            `json:"supportsVersion,omitempty"`
}

// GetDevice handles GET /api/devices/:serial. An optional version query
// parameter ("14", "macOS 14", "Sonoma") adds a compatibility verdict.
func (h *Handler) GetDevice(c *gin.Context) {
	serial := c.Param("serial")

	var version *compat.Version
	if raw := c.Query("version"); raw != "" {
		v, err := compat.ParseVersion(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		version = &v
	}

	device, err := h.inventory.FetchDevice(c.Request.Context(), serial)
	if err != nil {
		abortWithFetchError(c, err)
		return
	}
	if device == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "device not found", "serialNumber": serial})
		return
	}

	resp := DeviceResponse{
		Device:            device,
		WarrantyExpiry:    device.WarrantyExpiry(),
		SupportedVersions: device.SupportedVersions(),
	}
	if resp.SupportedVersions == nil {
		resp.SupportedVersions = []compat.Version{}
	}
	if version != nil {
		ok := device.SupportsVersion(*version)
		resp.SupportsVersion = &ok
	}
	c.JSON(http.StatusOK, resp)
}

// GetServers handles GET /api/servers.
func (h *Handler) GetServers(c *gin.Context) {
	servers, err := h.inventory.FetchServers(c.Request.Context())
	if err != nil {
		abortWithFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, servers)
}

// GetServerDevices handles GET /api/servers/:id/devices.
func (h *Handler) GetServerDevices(c *gin.Context) {
	entries, err := h.inventory.FetchDevicesForServer(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
