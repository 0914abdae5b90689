package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"asm-inventory/internal/client"
	"asm-inventory/internal/model"
	"asm-inventory/internal/store"
)

// Inventory is the live inventory lookup the handlers serve from.
type Inventory interface {
	FetchDevice(ctx context.Context, serial string) (*model.Device, error)
	FetchServers(ctx context.Context) ([]*model.Server, error)
	FetchDevicesForServer(ctx context.Context, serverID string) ([]client.DeviceEntry, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	inventory Inventory
	webpush   *webpush.Options
	alertLead time.Duration
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, inv Inventory, webpushOptions *webpush.Options, alertLead time.Duration) *Handler {
	return &Handler{
		store:     s,
		inventory: inv,
		webpush:   webpushOptions,
		alertLead: alertLead,
		now:       time.Now,
	}
}

// abortWithFetchError maps inventory errors onto HTTP statuses: upstream API
// failures become 502 carrying the upstream status and body, everything
// else (credentials, key material, transport) is a 500.
func abortWithFetchError(c *gin.Context, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":          apiErr.Error(),
			"upstreamStatus": apiErr.StatusCode,
			"upstreamBody":   apiErr.Body,
		})
		return
	}

	var authErr *client.AuthenticationError
	if errors.As(err, &authErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":          "authentication with the inventory API failed",
			"upstreamStatus": authErr.StatusCode,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
