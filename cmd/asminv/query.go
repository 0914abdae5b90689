package main

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"asm-inventory/internal/compat"
	"asm-inventory/internal/report"
)

var deviceCmd = &cobra.Command{
	Use:   "device SERIAL...",
	Short: "Show hydrated device records, coverage and supported OS versions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDevice,
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the organization's MDM servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		servers, err := c.FetchServers(cmd.Context())
		if err != nil {
			return err
		}
		return report.Servers(cmd.OutOrStdout(), servers)
	},
}

var serverDevicesCmd = &cobra.Command{
	Use:   "server-devices SERVER_ID",
	Short: "List the serial numbers assigned to an MDM server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, err := c.FetchDevicesForServer(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.DeviceEntries(cmd.OutOrStdout(), entries)
	},
}

var supportsCmd = &cobra.Command{
	Use:   "supports SERIAL VERSION",
	Short: "Check whether a device can run an OS version (e.g. 15, 26, Sequoia)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := compat.ParseVersion(args[1])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		d, err := c.FetchDevice(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%s: %s", args[0], report.NotFound)
		}
		return report.Supports(cmd.OutOrStdout(), d, v)
	},
}

var csvOutput bool

func init() {
	deviceCmd.Flags().BoolVar(&csvOutput, "csv", false, "write one CSV row per serial instead of text blocks")
}

// runDevice looks up each serial in turn. A failed lookup is reported on
// stderr and does not stop the remaining serials.
func runDevice(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureAuthenticated(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var w *csv.Writer
	if csvOutput {
		w = csv.NewWriter(out)
		if err := w.Write(report.CSVHeader); err != nil {
			return err
		}
	}

	failed := 0
	for _, serial := range args {
		d, err := c.FetchDevice(cmd.Context(), serial)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", serial, err)
			failed++
			continue
		}
		if w != nil {
			err = report.DeviceCSV(w, serial, d)
		} else {
			err = report.DeviceText(out, serial, d)
		}
		if err != nil {
			return err
		}
	}

	if w != nil {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(args))
	}
	return nil
}
