package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/model"
)

// VacationStatusApproved 已批准的休假
const VacationStatusApproved = "approved"

// VacationRepository 休假仓储
type VacationRepository struct {
	db DB
}

// NewVacationRepository 创建休假仓储
func NewVacationRepository(db DB) *VacationRepository {
	return &VacationRepository{db: db}
}

// Create 创建休假记录
func (r *VacationRepository) Create(ctx context.Context, v model.VacationInterval) error {
	if _, err := model.ParseDate(v.StartDate); err != nil {
		return apperrors.InvalidInput("start_date", err.Error())
	}
	if _, err := model.ParseDate(v.EndDate); err != nil {
		return apperrors.InvalidInput("end_date", err.Error())
	}
	if v.Status == "" {
		v.Status = "pending"
	}

	query := `INSERT INTO vacations (id, employee_id, start_date, end_date, status) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		uuid.New().String(), v.EmployeeID.String(), v.StartDate, v.EndDate, v.Status); err != nil {
		return dbError(err, "创建休假记录失败")
	}
	return nil
}

// ListApprovedBetween 查询指定员工与 [start, end] 有交集的已批准休假
func (r *VacationRepository) ListApprovedBetween(ctx context.Context, employeeIDs []uuid.UUID, start, end time.Time) ([]model.VacationInterval, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}

	args := []interface{}{VacationStatusApproved, model.FormatDate(end), model.FormatDate(start)}
	for _, id := range employeeIDs {
		args = append(args, id.String())
	}
	query := `
		SELECT employee_id, start_date, end_date, status
		FROM vacations
		WHERE status = $1 AND start_date <= $2 AND end_date >= $3
			AND employee_id IN (` + placeholders(4, len(employeeIDs)) + `)
		ORDER BY employee_id, start_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "查询休假失败")
	}
	defer rows.Close()

	var vacations []model.VacationInterval
	for rows.Next() {
		var (
			v  model.VacationInterval
			id string
		)
		if err := rows.Scan(&id, &v.StartDate, &v.EndDate, &v.Status); err != nil {
			return nil, dbError(err, "读取休假失败")
		}
		if v.EmployeeID, err = uuid.Parse(id); err != nil {
			return nil, dbError(err, "休假记录员工ID格式错误")
		}
		v.StartDate, v.EndDate = dateOnly(v.StartDate), dateOnly(v.EndDate)
		vacations = append(vacations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "读取休假失败")
	}
	return vacations, nil
}
