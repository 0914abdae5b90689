package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asm-inventory/internal/compat"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDevice_WarrantyExpiry(t *testing.T) {
	testCases := []struct {
		name      string
		coverages []Coverage
		expected  *time.Time
	}{
		{
			name: "Max of active end dates",
			coverages: []Coverage{
				{Status: CoverageStatusActive, EndDate: date(2025, 2, 2)},
				{Status: CoverageStatusActive, EndDate: date(2026, 4, 17)},
			},
			expected: date(2026, 4, 17),
		},
		{
			name: "Expired coverage ignored even when later",
			coverages: []Coverage{
				{Status: CoverageStatusActive, EndDate: date(2025, 2, 2)},
				{Status: CoverageStatusExpired, EndDate: date(2027, 1, 1)},
			},
			expected: date(2025, 2, 2),
		},
		{
			name:      "No coverages",
			coverages: nil,
			expected:  nil,
		},
		{
			name: "All expired",
			coverages: []Coverage{
				{Status: CoverageStatusExpired, EndDate: date(2024, 1, 1)},
				{Status: CoverageStatusInactive, EndDate: date(2030, 1, 1)},
			},
			expected: nil,
		},
		{
			name: "Active without end date",
			coverages: []Coverage{
				{Status: CoverageStatusActive},
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Device{SerialNumber: "C02XXXXXXXX", Coverages: tc.coverages}
			got := d.WarrantyExpiry()
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tc.expected.Equal(*got), "expected %v, got %v", tc.expected, got)
		})
	}
}

func TestDevice_WarrantyExpiryDoesNotAlias(t *testing.T) {
	d := &Device{Coverages: []Coverage{{Status: CoverageStatusActive, EndDate: date(2025, 2, 2)}}}
	got := d.WarrantyExpiry()
	require.NotNil(t, got)

	*got = got.AddDate(1, 0, 0)
	assert.Equal(t, 2025, d.Coverages[0].EndDate.Year())
}

func TestDevice_ActiveCoverages(t *testing.T) {
	d := &Device{Coverages: []Coverage{
		{ID: "a", Status: CoverageStatusExpired},
		{ID: "b", Status: CoverageStatusActive},
		{ID: "c", Status: CoverageStatusActive},
	}}
	active := d.ActiveCoverages()
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].ID)
	assert.Equal(t, "c", active[1].ID)
}

func TestDevice_Compatibility(t *testing.T) {
	d := &Device{ProductType: "iPad13,18"}
	assert.True(t, d.SupportsVersion(compat.Version(17)))
	assert.False(t, d.SupportsVersion(compat.Version(15)))
	assert.NotEmpty(t, d.SupportedVersions())
}

func TestDevice_ServerName(t *testing.T) {
	d := &Device{}
	assert.Equal(t, "", d.ServerName())
	d.AssignedServer = &Server{ID: "S1", Name: "Jamf"}
	assert.Equal(t, "Jamf", d.ServerName())
}
