package inventory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/apperr"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/shortid"
	"dcim-inventory-backend/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *shortid.Pool, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	pool := shortid.NewPool(db, config.ShortIDConfig{}, zerolog.Nop())
	return NewStore(db, pool, zerolog.Nop()), pool, db
}

func ptr(v int64) *int64 { return &v }

func TestStore_CreateHierarchyBindsShortIDs(t *testing.T) {
	ctx := context.Background()
	store, pool, _ := newTestStore(t)
	_, err := pool.Generate(ctx, 6, nil)
	require.NoError(t, err)

	dc, err := store.CreateDataCenter(ctx, "DC1", ptr(1))
	require.NoError(t, err)
	room, err := store.CreateRoom(ctx, dc.ID, "Hall A", ptr(2))
	require.NoError(t, err)
	cab, err := store.CreateCabinet(ctx, room.ID, "A01", ptr(3))
	require.NoError(t, err)
	dev, err := store.CreateDevice(ctx, cab.ID, "sw-01", nil)
	require.NoError(t, err)
	panel, err := store.CreatePanel(ctx, dev.ID, "front", ptr(5))
	require.NoError(t, err)
	port, err := store.CreatePort(ctx, panel.ID, "Gi1/0/1", 1, ptr(6))
	require.NoError(t, err)
	assert.Equal(t, model.PortAvailable, port.Status)

	testCases := []struct {
		value      int64
		entityType model.EntityType
		entityID   string
	}{
		{1, model.EntityDataCenter, dc.ID},
		{2, model.EntityRoom, room.ID},
		{3, model.EntityCabinet, cab.ID},
		{5, model.EntityPanel, panel.ID},
		{6, model.EntityPort, port.ID},
	}
	for _, tc := range testCases {
		check, err := pool.CheckExists(ctx, tc.value)
		require.NoError(t, err)
		assert.Equal(t, shortid.UsedByEntity, check.UsedBy)
		assert.Equal(t, tc.entityType, check.EntityType)
		assert.Equal(t, tc.entityID, *check.Details.EntityID)
	}

	// 4 was skipped by the device and is still reserved.
	check, err := pool.CheckExists(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, shortid.UsedByPool, check.UsedBy)

	chain, err := store.LocationChain(ctx, port.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gi1/0/1", chain.Port.Name)
	assert.Equal(t, "front", chain.Panel.Name)
	assert.Equal(t, "sw-01", chain.Device.Name)
	assert.Equal(t, "A01", chain.Cabinet.Name)
	assert.Equal(t, "Hall A", chain.Room.Name)
	assert.Equal(t, "DC1", chain.DataCenter.Name)
	assert.Equal(t, int64(1), *chain.DataCenter.ShortID)
}

func TestStore_CreateRejectsTakenShortID(t *testing.T) {
	ctx := context.Background()
	store, pool, db := newTestStore(t)
	_, err := pool.Generate(ctx, 3, nil)
	require.NoError(t, err)
	dc, err := store.CreateDataCenter(ctx, "DC1", ptr(1))
	require.NoError(t, err)
	require.NoError(t, pool.Cancel(ctx, 2, "torn"))

	testCases := []struct {
		name    string
		shortID int64
		check   func(error) bool
	}{
		{"Bound to another entity", 1, apperr.IsConflict},
		{"Cancelled", 2, apperr.IsInvalidState},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.CreateRoom(ctx, dc.ID, "Hall", ptr(tc.shortID))
			assert.True(t, tc.check(err), "unexpected error: %v", err)

			var rooms int64
			require.NoError(t, db.Model(&model.Room{}).Count(&rooms).Error)
			assert.Zero(t, rooms)
		})
	}
}

func TestStore_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	_, err := store.CreateRoom(ctx, "missing-dc", "Hall", nil)
	assert.True(t, apperr.IsNotFound(err))

	_, err = store.CreateDataCenter(ctx, "", nil)
	assert.True(t, apperr.IsInvalidArgument(err))

	_, err = store.CreateCabinet(ctx, "", "A01", nil)
	assert.True(t, apperr.IsInvalidArgument(err))
}

func TestStore_CreateWithUnallocatedShortID(t *testing.T) {
	ctx := context.Background()
	store, pool, _ := newTestStore(t)

	dc, err := store.CreateDataCenter(ctx, "DC9", ptr(900))
	require.NoError(t, err)

	check, err := pool.CheckExists(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, shortid.UsedByEntity, check.UsedBy)
	assert.Equal(t, dc.ID, *check.Details.EntityID)
	assert.Equal(t, shortid.SourcePool, check.Details.Source)
}

func TestLocationChain_MissingPort(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, err := store.LocationChain(context.Background(), "nope")
	assert.True(t, apperr.IsNotFound(err))
}
