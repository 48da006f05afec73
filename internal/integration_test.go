package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/api"
	"dcim-inventory-backend/internal/cabling"
	"dcim-inventory-backend/internal/inventory"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/reconcile"
	"dcim-inventory-backend/internal/shortid"
	"dcim-inventory-backend/internal/testutil"
)

type client struct {
	t    *testing.T
	base string
}

func (c client) call(method, path string, body any, dest any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if dest != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.Unmarshal(raw, dest), string(raw))
	}
	return resp.StatusCode
}

// TestLabelLifecycle walks a label from legacy migration through printing,
// binding to inventory, cabling by scan and finally retirement.
func TestLabelLifecycle(t *testing.T) {
	// --- Test Setup ---
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	log := zerolog.Nop()

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	pool := shortid.NewPool(gdb, cfg.ShortID, log)
	resolver := cabling.NewResolver(gdb, pool)
	handler := api.NewHandler(api.Services{
		Pool:      pool,
		Batches:   shortid.NewPrintBatches(pool),
		Resolver:  resolver,
		Cables:    cabling.NewService(gdb, pool, resolver, log),
		Inventory: inventory.NewStore(gdb, pool, log),
	}, log)
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	server := httptest.NewServer(api.NewRouter(handler, cfg.Server, log))
	defer server.Close()
	c := client{t: t, base: server.URL}

	// --- Step 1: migrate the legacy allocation table ---
	legacyRoom := "legacy-room"
	require.NoError(t, gdb.Create(&model.LegacyShortIDAllocation{
		ID: 3, EntityType: "Room", EntityID: &legacyRoom, CreatedAt: time.Now().Add(-24 * time.Hour),
	}).Error)
	report, err := reconcile.NewTool(gdb, log).Run(ctx, reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	// --- Step 2: allocate and print labels ---
	var generated struct {
		ShortIDs []int64 `json:"shortIds"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/shortid-pool/generate", gin.H{"count": 4}, &generated))
	assert.Equal(t, []int64{4, 5, 6, 7}, generated.ShortIDs, "generation continues above migrated values")

	var printed struct {
		PrintTask model.PrintTask `json:"printTask"`
		ShortIDs  []int64         `json:"shortIds"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/shortid-pool/print-task/create", gin.H{"name": "cable labels", "count": 2}, &printed))
	assert.Equal(t, []int64{8, 9}, printed.ShortIDs)

	// --- Step 3: build inventory with labels ---
	var dc model.DataCenter
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/datacenters", gin.H{"name": "dc-east", "shortId": "E-00004"}, &dc))
	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, "/inventory/datacenters", gin.H{"name": "dc-west", "shortId": 3}, nil))

	var room model.Room
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/rooms", gin.H{"parentId": dc.ID, "name": "hall-1"}, &room))
	var cabinet model.Cabinet
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/cabinets", gin.H{"parentId": room.ID, "name": "r01"}, &cabinet))
	var device model.Device
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/devices", gin.H{"parentId": cabinet.ID, "name": "sw-01"}, &device))
	var panel model.Panel
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/panels", gin.H{"parentId": device.ID, "name": "front"}, &panel))
	var portA, portB model.Port
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/ports", gin.H{"parentId": panel.ID, "name": "p1", "number": 1, "shortId": 5}, &portA))
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/inventory/ports", gin.H{"parentId": panel.ID, "name": "p2", "number": 2}, &portB))

	var chain inventory.Chain
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/inventory/ports/"+portA.ID+"/location", nil, &chain))
	require.NotNil(t, chain.DataCenter)
	assert.Equal(t, int64(4), *chain.DataCenter.ShortID)

	// --- Step 4: connect a cable by scanning its label at both ends ---
	var first, second cabling.ConnectResult
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/cables/connect-single-port", gin.H{"portId": portA.ID, "shortId": 8, "type": "cat6"}, &first))
	assert.Equal(t, cabling.KindNew, first.Kind)
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/cables/connect-single-port", gin.H{"portId": portB.ID, "shortId": "E-00008"}, &second))
	assert.Equal(t, cabling.KindContinuation, second.Kind)
	require.NotNil(t, second.PeerInfo)
	assert.Equal(t, portA.ID, second.PeerInfo.Port.ID)

	var stats shortid.Stats
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/shortid-pool/stats", nil, &stats))
	assert.Equal(t, shortid.Stats{
		Total: 7, Generated: 2, Printed: 1, Bound: 4, Cancelled: 0,
		ByType: map[model.EntityType]int64{
			model.EntityRoom: 1, model.EntityDataCenter: 1, model.EntityPort: 1, model.EntityCable: 1,
		},
	}, stats)

	// --- Step 5: remove the cable; its label is retired for good ---
	require.Equal(t, http.StatusOK, c.call(http.MethodDelete, "/cables/"+first.Cable.ID+"?reason=recabled", nil, nil))

	var check shortid.Check
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/shortid-pool/check", gin.H{"shortId": 8}, &check))
	assert.Equal(t, shortid.UsedByCancelled, check.UsedBy)
	assert.Equal(t, model.PortAvailable, testutil.PortStatus(t, gdb, portA.ID))
	assert.Equal(t, model.PortAvailable, testutil.PortStatus(t, gdb, portB.ID))

	assert.Equal(t, http.StatusUnprocessableEntity, c.call(http.MethodPost, "/cables/connect-single-port", gin.H{"portId": portA.ID, "shortId": 8}, nil))
}
