package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
)

// ScheduleRepository 周排班仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建周排班仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Upsert 按 (employee_id, week_start) 写入周排班，已存在则覆盖
// db 为空时使用仓储自身连接，传入事务可与其他写入原子提交
func (r *ScheduleRepository) Upsert(ctx context.Context, db DB, entries []model.WeeklySchedule) error {
	if db == nil {
		db = r.db
	}

	query := `
		INSERT INTO weekly_schedules (
			id, employee_id, week_start, week_end, schedule_data, total_hours, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (employee_id, week_start) DO UPDATE SET
			week_end = excluded.week_end,
			schedule_data = excluded.schedule_data,
			total_hours = excluded.total_hours,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	for _, entry := range entries {
		weekStart, err := model.ParseDate(entry.WeekStart)
		if err != nil {
			return apperrors.InvalidInput("week_start", err.Error())
		}
		data, err := json.Marshal(entry.ScheduleData)
		if err != nil {
			return apperrors.Internal(err, "序列化排班数据失败")
		}
		id := entry.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		status := entry.Status
		if status == "" {
			status = model.ScheduleStatusDraft
		}

		if _, err := db.ExecContext(ctx, query,
			id.String(), entry.EmployeeID.String(),
			model.FormatDate(weekStart), model.FormatDate(model.WeekEnd(weekStart)),
			string(data), entry.TotalHours, status, now, now,
		); err != nil {
			return dbError(err, fmt.Sprintf("保存员工 %s 的排班失败", entry.EmployeeID))
		}
	}
	return nil
}

// ListByWeek 查询部门某周的排班
// schedule_data 损坏的记录记录警告后跳过
func (r *ScheduleRepository) ListByWeek(ctx context.Context, departmentID uuid.UUID, weekStart time.Time) ([]model.WeeklySchedule, error) {
	query := `
		SELECT s.id, s.employee_id, s.week_start, s.week_end, s.schedule_data, s.total_hours, s.status
		FROM weekly_schedules s
		JOIN employees e ON e.id = s.employee_id
		WHERE e.department_id = $1 AND s.week_start = $2
		ORDER BY e.last_name, e.first_name, e.id`

	rows, err := r.db.QueryContext(ctx, query, departmentID.String(), model.FormatDate(weekStart))
	if err != nil {
		return nil, dbError(err, "查询排班失败")
	}
	defer rows.Close()

	schedules := []model.WeeklySchedule{}
	for rows.Next() {
		var (
			ws        model.WeeklySchedule
			id, empID string
			raw       string
		)
		if err := rows.Scan(&id, &empID, &ws.WeekStart, &ws.WeekEnd, &raw, &ws.TotalHours, &ws.Status); err != nil {
			return nil, dbError(err, "读取排班失败")
		}
		if ws.ID, err = uuid.Parse(id); err != nil {
			return nil, dbError(err, "排班ID格式错误")
		}
		if ws.EmployeeID, err = uuid.Parse(empID); err != nil {
			return nil, dbError(err, "排班员工ID格式错误")
		}
		ws.WeekStart, ws.WeekEnd = dateOnly(ws.WeekStart), dateOnly(ws.WeekEnd)

		if err := json.Unmarshal([]byte(raw), &ws.ScheduleData); err != nil {
			logger.WithContext(ctx).Warn().
				Err(apperrors.DataError("schedule_data", err)).
				Str("employee_id", empID).
				Str("week_start", ws.WeekStart).
				Msg("排班数据格式错误，跳过该员工")
			continue
		}
		schedules = append(schedules, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "读取排班失败")
	}
	return schedules, nil
}
