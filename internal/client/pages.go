package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"asm-inventory/internal/executor"
	"asm-inventory/internal/model"
)

// walkPages follows links.next from first until it is absent or empty and
// returns the concatenated data elements of every page, in order.
func (c *Client) walkPages(ctx context.Context, first string) ([]json.RawMessage, error) {
	if err := c.auth.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var all []json.RawMessage
	next := first
	for page := 1; next != ""; page++ {
		resp, err := c.exec.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, executor.NewAPIError(resp)
		}

		var body pageResponse
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page %d of %s: %w", page, first, err)
		}
		all = append(all, body.Data...)
		c.log.Debug().Int("page", page).Int("entries", len(body.Data)).Msg("page fetched")

		if body.Links.Next == nil || *body.Links.Next == "" {
			break
		}
		resolved, err := resolveLink(next, *body.Links.Next)
		if err != nil {
			return nil, err
		}
		next = resolved
	}
	return all, nil
}

// resolveLink resolves a possibly relative next link against the current page URL.
func resolveLink(current, link string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", link, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) listURL(segments ...string) (string, error) {
	u, err := c.endpoint(segments...)
	if err != nil {
		return "", err
	}
	return u + "?limit=" + strconv.Itoa(c.pageSize), nil
}

// FetchDevicesForServer lists every device assigned to an MDM server across
// all pages. Entries are not hydrated and are not cached.
func (c *Client) FetchDevicesForServer(ctx context.Context, serverID string) ([]DeviceEntry, error) {
	first, err := c.listURL("mdmServers", serverID, "relationships", "devices")
	if err != nil {
		return nil, err
	}

	raw, err := c.walkPages(ctx, first)
	if err != nil {
		return nil, err
	}

	entries := make([]DeviceEntry, 0, len(raw))
	for _, r := range raw {
		var e DeviceEntry
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device entry for server %s: %w", serverID, err)
		}
		entries = append(entries, e)
	}

	c.log.Info().Str("server_id", serverID).Int("devices", len(entries)).Msg("server devices listed")
	return entries, nil
}

// FetchServers lists every MDM server of the organization. Each server goes
// through the cache, so it is the same instance devices reference.
func (c *Client) FetchServers(ctx context.Context) ([]*model.Server, error) {
	first, err := c.listURL("mdmServers")
	if err != nil {
		return nil, err
	}

	raw, err := c.walkPages(ctx, first)
	if err != nil {
		return nil, err
	}

	servers := make([]*model.Server, 0, len(raw))
	for _, r := range raw {
		var res serverResource
		if err := json.Unmarshal(r, &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal server entry: %w", err)
		}
		s, err := c.internServer(res)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, nil
}
