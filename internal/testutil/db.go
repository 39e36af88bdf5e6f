// Package testutil builds in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/useneurox-company/ERP--sub000/internal/database"
	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// It holds a single connection, so code under test must not use the root
// handle while a transaction is open.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateProject inserts an empty project
func CreateProject(t *testing.T, db *gorm.DB, name string) *domain.Project {
	t.Helper()
	project := &domain.Project{Name: name, ClientName: "Test Client", Template: "empty", CreatedByID: "user-1"}
	require.NoError(t, db.Create(project).Error)
	return project
}

// CreateStage inserts a pending stage of stageType into a project
func CreateStage(t *testing.T, db *gorm.DB, projectID uuid.UUID, name string, stageType domain.StageType, order int) *domain.Stage {
	t.Helper()
	stage := &domain.Stage{
		ProjectID:    projectID,
		Name:         name,
		StageType:    stageType,
		Status:       domain.StageStatusPending,
		DisplayOrder: order,
	}
	require.NoError(t, db.Create(stage).Error)
	return stage
}

// CreateWarehouseItem inserts a catalog item
func CreateWarehouseItem(t *testing.T, db *gorm.DB, name, sku string, quantity float64, price string) *domain.WarehouseItem {
	t.Helper()
	item := &domain.WarehouseItem{
		Name:     name,
		SKU:      sku,
		Quantity: quantity,
		Unit:     "pcs",
		Price:    decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}
