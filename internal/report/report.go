// Package report renders inventory records for terminal output.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"asm-inventory/internal/client"
	"asm-inventory/internal/compat"
	"asm-inventory/internal/model"
)

// NotFound is printed in place of a device the API does not know.
const NotFound = "NOT FOUND"

// CSVHeader is the column order of DeviceCSV rows.
var CSVHeader = []string{
	"serial_number", "model", "product_type", "status", "color", "capacity",
	"mdm_server", "warranty_expiry", "active_coverages", "supported_versions",
}

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatVersions(vs []compat.Version) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

// DeviceText writes a human-readable block for one device. A nil device prints NOT FOUND.
func DeviceText(w io.Writer, serial string, d *model.Device) error {
	if d == nil {
		_, err := fmt.Fprintf(w, "%s: %s\n\n", serial, NotFound)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Serial:\t%s\n", d.SerialNumber)
	fmt.Fprintf(tw, "Model:\t%s\n", d.Model)
	fmt.Fprintf(tw, "Product type:\t%s\n", d.ProductType)
	fmt.Fprintf(tw, "Status:\t%s\n", d.Status)
	if d.Color != "" || d.Capacity != "" {
		fmt.Fprintf(tw, "Color / capacity:\t%s / %s\n", d.Color, d.Capacity)
	}
	fmt.Fprintf(tw, "MDM server:\t%s\n", orDash(d.ServerName()))
	fmt.Fprintf(tw, "Warranty expiry:\t%s\n", orDash(formatDate(d.WarrantyExpiry())))
	fmt.Fprintf(tw, "Supported OS:\t%s\n", orDash(formatVersions(d.SupportedVersions())))
	for _, c := range d.Coverages {
		fmt.Fprintf(tw, "Coverage:\t%s [%s] %s - %s\n", c.Description, c.Status, formatDate(c.StartDate), formatDate(c.EndDate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// DeviceCSV writes one row per device in CSVHeader order. A nil device
// yields a row holding only the serial and NOT FOUND.
func DeviceCSV(w *csv.Writer, serial string, d *model.Device) error {
	if d == nil {
		return w.Write([]string{serial, NotFound})
	}
	return w.Write([]string{
		d.SerialNumber,
		d.Model,
		d.ProductType,
		d.Status,
		d.Color,
		d.Capacity,
		d.ServerName(),
		formatDate(d.WarrantyExpiry()),
		strconv.Itoa(len(d.ActiveCoverages())),
		formatVersions(d.SupportedVersions()),
	})
}

// Servers writes a table of MDM servers.
func Servers(w io.Writer, servers []*model.Server) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, s := range servers {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Type)
	}
	return tw.Flush()
}

// DeviceEntries writes one listing entry ID per line.
func DeviceEntries(w io.Writer, entries []client.DeviceEntry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Supports writes the compatibility verdict for one device and version.
func Supports(w io.Writer, d *model.Device, v compat.Version) error {
	verdict := "does not support"
	if d.SupportsVersion(v) {
		verdict = "supports"
	}
	_, err := fmt.Fprintf(w, "%s (%s) %s version %s\n", d.SerialNumber, d.ProductType, verdict, v)
	return err
}
