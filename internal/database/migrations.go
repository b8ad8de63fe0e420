package database

import (
	"fmt"

	"github.com/onboardhq/task-engine/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the tasks table. The
// claimability predicate (status + claim_expires_at) is the hot path.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns string
	}{
		{"idx_tasks_status", "status"},
		{"idx_tasks_priority", "priority"},
		{"idx_tasks_claim_expires_at", "claim_expires_at"},
		{"idx_tasks_assigned_to", "assigned_to"},
		{"idx_tasks_target_employee_id", "target_employee_id"},
		{"idx_tasks_due_date", "due_date"},
		{"idx_tasks_updated_at", "updated_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(&models.Task{}, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		zap.L().Info("created index", zap.String("index", idx.name))
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
