package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"asm-inventory/internal/executor"
	"asm-inventory/internal/model"
)

// FetchDevice returns the fully hydrated device for serial, or nil if the
// API does not know it. A cached device is returned without any network call.
func (c *Client) FetchDevice(ctx context.Context, serial string) (*model.Device, error) {
	if d, ok := c.cache.Device(serial); ok {
		c.log.Debug().Str("serial", serial).Msg("device cache hit")
		return d, nil
	}

	// The shared hydration outlives any single caller; each caller stops
	// waiting on its own cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(serial, func() (interface{}, error) {
		return c.hydrateDevice(shared, serial)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Device), nil
	}
}

func (c *Client) hydrateDevice(ctx context.Context, serial string) (*model.Device, error) {
	// A concurrent caller may have finished while this one waited on the flight group.
	if d, ok := c.cache.Device(serial); ok {
		return d, nil
	}

	if err := c.auth.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	// Step 1: device detail
	reqURL, err := c.endpoint("orgDevices", serial)
	if err != nil {
		return nil, err
	}
	resp, err := c.exec.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.log.Info().Str("serial", serial).Msg("device not found")
		return nil, nil
	default:
		return nil, executor.NewAPIError(resp)
	}

	var detail deviceResponse
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device %s: %w", serial, err)
	}
	if isEmptyPayload(detail.Data) {
		c.log.Info().Str("serial", serial).Msg("device detail empty, treating as not found")
		return nil, nil
	}
	var resource deviceResource
	if err := json.Unmarshal(detail.Data, &resource); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device %s: %w", serial, err)
	}

	// Step 2: assigned server
	server, err := c.FetchAssignedServer(ctx, serial)
	if err != nil {
		return nil, err
	}

	// Step 3: coverage
	coverages, err := c.FetchCoverages(ctx, serial)
	if err != nil {
		return nil, err
	}

	device, err := toDevice(serial, resource, server, coverages)
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("serial", serial).Str("model", device.Model).Int("coverages", len(coverages)).Msg("device hydrated")
	return c.cache.StoreDevice(device), nil
}

// FetchAssignedServer returns the MDM server the device is assigned to, or
// nil when it has none. Servers are memoized by ID.
func (c *Client) FetchAssignedServer(ctx context.Context, serial string) (*model.Server, error) {
	if err := c.auth.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	reqURL, err := c.endpoint("orgDevices", serial, "assignedServer")
	if err != nil {
		return nil, err
	}
	resp, err := c.exec.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, executor.NewAPIError(resp)
	}

	var body serverResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assigned server for %s: %w", serial, err)
	}
	if isEmptyPayload(body.Data) {
		return nil, nil
	}

	var resource serverResource
	if err := json.Unmarshal(body.Data, &resource); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assigned server for %s: %w", serial, err)
	}

	return c.internServer(resource)
}

// internServer returns the cached server for r.ID, constructing and caching one only on a miss.
func (c *Client) internServer(r serverResource) (*model.Server, error) {
	if s, ok := c.cache.Server(r.ID); ok {
		return s, nil
	}
	s, err := toServer(r)
	if err != nil {
		return nil, err
	}
	return c.cache.StoreServer(s), nil
}

// FetchCoverages returns every coverage record for the device, unfiltered
// and in API order. A device without coverage yields an empty slice.
func (c *Client) FetchCoverages(ctx context.Context, serial string) ([]model.Coverage, error) {
	if err := c.auth.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	reqURL, err := c.endpoint("orgDevices", serial, "appleCareCoverage")
	if err != nil {
		return nil, err
	}
	resp, err := c.exec.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []model.Coverage{}, nil
	default:
		return nil, executor.NewAPIError(resp)
	}

	var body coverageResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coverage for %s: %w", serial, err)
	}

	coverages := make([]model.Coverage, 0, len(body.Data))
	for _, r := range body.Data {
		cov, err := toCoverage(r)
		if err != nil {
			return nil, err
		}
		coverages = append(coverages, cov)
	}
	return coverages, nil
}
