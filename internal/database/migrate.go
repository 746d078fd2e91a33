package database

import (
	"context"
	"fmt"
)

// migrations 表结构，PostgreSQL 与 SQLite 通用
// 日期以 YYYY-MM-DD 文本存储，偏好与排班数据以 JSON 文本存储
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id               TEXT PRIMARY KEY,
		department_id    TEXT NOT NULL,
		first_name       TEXT NOT NULL DEFAULT '',
		last_name        TEXT NOT NULL DEFAULT '',
		role             TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'active',
		contract_hours   DOUBLE PRECISION NOT NULL DEFAULT 0,
		hour_balance     DOUBLE PRECISION NOT NULL DEFAULT 0,
		preferred_shifts TEXT,
		created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department_id, status)`,
	`CREATE TABLE IF NOT EXISTS vacations (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		start_date  TEXT NOT NULL,
		end_date    TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vacations_employee ON vacations(employee_id, start_date)`,
	`CREATE TABLE IF NOT EXISTS weekly_schedules (
		id            TEXT PRIMARY KEY,
		employee_id   TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		week_start    TEXT NOT NULL,
		week_end      TEXT NOT NULL,
		schedule_data TEXT NOT NULL,
		total_hours   DOUBLE PRECISION NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT 'draft',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (employee_id, week_start)
	)`,
}

// Migrate 执行建表语句，可重复执行
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("迁移 %d 失败: %w", i, err)
		}
	}
	return nil
}
