package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asm-inventory/config"
	"asm-inventory/internal/client"
	"asm-inventory/internal/db"
	"asm-inventory/internal/executor"
	"asm-inventory/internal/model"
	"asm-inventory/internal/store"
	"asm-inventory/internal/syncer"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	serials []string
}

func (d *recordingDispatcher) Start(context.Context) {}

func (d *recordingDispatcher) Dispatch(_ context.Context, serial string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serials = append(d.serials, serial)
	return nil
}

type noAuth struct{}

func (noAuth) Authenticate(context.Context) error        { return nil }
func (noAuth) EnsureAuthenticated(context.Context) error { return nil }
func (noAuth) Token() string                             { return "token" }

// TestWarrantySyncLifecycle runs consecutive sync cycles against a changing
// upstream and verifies the snapshot and alert bookkeeping after each one.
func TestWarrantySyncLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := db.Init(&config.DatabaseConfig{DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	var (
		mu      sync.Mutex
		endDate = "2025-06-20T00:00:00Z"
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/mdmServers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"SRV1","type":"mdmServers","attributes":{"serverName":"Jamf School","serverType":"MDM"}}]}`)
	})
	mux.HandleFunc("/v1/mdmServers/SRV1/relationships/devices", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"SER1","type":"orgDevices"},{"id":"SER2","type":"orgDevices"}]}`)
	})
	for _, serial := range []string{"SER1", "SER2"} {
		serial := serial
		mux.HandleFunc("/v1/orgDevices/"+serial, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"data":{"id":%q,"type":"orgDevices","attributes":{"deviceModel":"iPad","productType":"iPad13,16"}}}`, serial)
		})
		mux.HandleFunc("/v1/orgDevices/"+serial+"/assignedServer", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"id":"SRV1","type":"mdmServers","attributes":{"serverName":"Jamf School"}}}`)
		})
	}
	mux.HandleFunc("/v1/orgDevices/SER1/appleCareCoverage", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, `{"data":[{"id":"C1","type":"appleCareCoverage","attributes":{"status":"ACTIVE","description":"AppleCare+","endDateTime":%q}}]}`, endDate)
	})
	mux.HandleFunc("/v1/orgDevices/SER2/appleCareCoverage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"C2","type":"appleCareCoverage","attributes":{"status":"ACTIVE","endDateTime":"2027-01-01T00:00:00Z"}}]}`)
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	exec := executor.New(upstream.Client(), noAuth{}, nil, executor.Config{PacingEnabled: false}, zerolog.Nop())
	c := client.NewWithDeps(client.Deps{Auth: noAuth{}, Executor: exec, BaseURL: upstream.URL + "/v1/", Logger: zerolog.Nop()})

	cfg := config.Default()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	dispatcher := &recordingDispatcher{}
	gormStore := store.NewGormStore(testDB)
	svc := syncer.NewService(cfg, gormStore, c,
		syncer.WithDispatcher(dispatcher),
		syncer.WithClock(func() time.Time { return now }),
	)

	// --- Cycle 1: SER1 expires inside the lead window ---
	t.Run("Cycle 1: expiring device is alerted", func(t *testing.T) {
		summary, err := svc.SyncOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Devices)
		assert.Equal(t, 1, summary.Alerts)
		assert.Equal(t, []string{"SER1"}, dispatcher.serials)

		var server model.MDMServer
		require.NoError(t, testDB.First(&server, "id = ?", "SRV1").Error)
		assert.Equal(t, "Jamf School", server.Name)

		var device model.InventoryDevice
		require.NoError(t, testDB.First(&device, "serial_number = ?", "SER1").Error)
		require.NotNil(t, device.AlertedExpiry)
		assert.True(t, device.AlertedExpiry.Equal(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)))
	})

	// --- Cycle 2: nothing changed, no duplicate alert ---
	t.Run("Cycle 2: no duplicate alert", func(t *testing.T) {
		summary, err := svc.SyncOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Alerts)
		assert.Len(t, dispatcher.serials, 1)
	})

	// --- Cycle 3: coverage renewed to a later date still inside the window ---
	t.Run("Cycle 3: renewed expiry is alerted again", func(t *testing.T) {
		mu.Lock()
		endDate = "2025-06-28T00:00:00Z"
		mu.Unlock()

		summary, err := svc.SyncOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Alerts)
		assert.Equal(t, []string{"SER1", "SER1"}, dispatcher.serials)

		var coverages []model.InventoryCoverage
		require.NoError(t, testDB.Where("serial_number = ?", "SER1").Find(&coverages).Error)
		require.Len(t, coverages, 1)
		assert.Equal(t, "AppleCare+", coverages[0].Description)

		expiring, err := gormStore.ExpiringDevices(context.Background(), now, cfg.Alerts.Lead)
		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, "SER1", expiring[0].SerialNumber)
		require.NotNil(t, expiring[0].Server)
		assert.Equal(t, "Jamf School", expiring[0].Server.Name)
	})
}
