// Package testutil provides an isolated in-memory database and inventory
// fixtures for package tests.
package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dcim-inventory-backend/internal/db"
	"dcim-inventory-backend/internal/model"
)

var dbSeq atomic.Int64

// NewDB opens a migrated, seeded in-memory SQLite database private to t.
// A single connection keeps every statement on the same memory database and
// serializes transactions the way row locks would in postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d_%d?mode=memory&cache=shared", os.Getpid(), dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.SeedCounters(gdb))
	return gdb
}

// Site is a single data center with one room, cabinet, device and panel.
type Site struct {
	DataCenter model.DataCenter
	Room       model.Room
	Cabinet    model.Cabinet
	Device     model.Device
	Panel      model.Panel
}

// SeedSite creates a location hierarchy named after prefix.
func SeedSite(t *testing.T, gdb *gorm.DB, prefix string) Site {
	t.Helper()

	s := Site{DataCenter: model.DataCenter{Name: prefix + "-dc"}}
	require.NoError(t, gdb.Create(&s.DataCenter).Error)

	s.Room = model.Room{DataCenterID: s.DataCenter.ID, Name: prefix + "-room"}
	require.NoError(t, gdb.Create(&s.Room).Error)

	s.Cabinet = model.Cabinet{RoomID: s.Room.ID, Name: prefix + "-cab"}
	require.NoError(t, gdb.Create(&s.Cabinet).Error)

	s.Device = model.Device{CabinetID: s.Cabinet.ID, Name: prefix + "-dev"}
	require.NoError(t, gdb.Create(&s.Device).Error)

	s.Panel = model.Panel{DeviceID: s.Device.ID, Name: prefix + "-panel"}
	require.NoError(t, gdb.Create(&s.Panel).Error)
	return s
}

// SeedPorts adds n AVAILABLE ports numbered from 1 to the site's panel.
func SeedPorts(t *testing.T, gdb *gorm.DB, site Site, n int) []model.Port {
	t.Helper()

	ports := make([]model.Port, n)
	for i := range ports {
		ports[i] = model.Port{
			PanelID: site.Panel.ID,
			Name:    fmt.Sprintf("%s-p%d", site.Panel.Name, i+1),
			Number:  i + 1,
			Status:  model.PortAvailable,
		}
	}
	require.NoError(t, gdb.Create(&ports).Error)
	return ports
}

// PortStatus reloads the status of a port.
func PortStatus(t *testing.T, gdb *gorm.DB, portID string) model.PortStatus {
	t.Helper()

	var port model.Port
	require.NoError(t, gdb.First(&port, "id = ?", portID).Error)
	return port.Status
}
