// Package cli 提供 planctl 命令行
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/internal/database"
	"github.com/smartplanning/planning/internal/repository"
	"github.com/smartplanning/planning/internal/service"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler"
)

// App 命令行依赖
type App struct {
	Out       io.Writer
	Scheduler config.SchedulerConfig

	Version   string
	BuildTime string
	GitCommit string
}

// NewRootCmd 创建 planctl 根命令
func NewRootCmd(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "周排班生成工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)

	root.AddCommand(
		newGenerateCmd(app),
		newImportCmd(app),
		newShowCmd(app),
		newVersionCmd(app),
	)
	return root
}

func newGenerateCmd(app *App) *cobra.Command {
	var (
		file      string
		minimum   int
		noBalance bool
		asJSON    bool
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "根据输入文件生成一周排班",
		Example: "  planctl generate -f week.yaml\n" +
			"  planctl generate -f week.yaml --min 2 --json\n" +
			"  planctl generate -f week.yaml --db planning.db",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := LoadWeekFile(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("min") {
				week.MinimumEmployees = &minimum
			}
			if noBalance {
				balance := false
				week.BalanceRoles = &balance
			}

			ctx := context.Background()
			var summary Summary
			if dbPath != "" {
				summary, err = app.generateStored(ctx, dbPath, week)
			} else {
				summary, err = app.generateLocal(ctx, week)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(app.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"success": true,
					"data":    summary.Schedule,
					"stats":   summary.Stats,
				})
			}
			fmt.Fprint(app.Out, FormatSummary(summary))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "输入文件（YAML 或 JSON）")
	cmd.Flags().IntVar(&minimum, "min", scheduler.DefaultMinimumEmployees, "每个营业小时的最低在岗人数")
	cmd.Flags().BoolVar(&noBalance, "no-balance-roles", false, "关闭岗位均衡")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite 数据库路径，指定时从库中读取员工并保存结果")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// generateLocal 仅使用文件中的数据在本地运行引擎
func (app *App) generateLocal(ctx context.Context, week *Week) (Summary, error) {
	opts := []scheduler.Option{
		scheduler.WithMinimumEmployees(app.Scheduler.MinimumEmployees),
		scheduler.WithBalanceRoles(app.Scheduler.BalanceRoles),
		scheduler.WithMaxIterations(app.Scheduler.MaxIterations),
		scheduler.WithContractHours(app.Scheduler.DefaultContractHours),
	}
	if week.MinimumEmployees != nil {
		opts = append(opts, scheduler.WithMinimumEmployees(*week.MinimumEmployees))
	}
	if week.BalanceRoles != nil {
		opts = append(opts, scheduler.WithBalanceRoles(*week.BalanceRoles))
	}

	run, err := scheduler.Run(ctx, week.Employees, week.WeekStart, week.BusinessHours, week.Vacations, week.Preferences, opts...)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		WeekStart: run.WeekStart,
		WeekEnd:   run.WeekEnd,
		Schedule:  run.Schedule,
		Names:     employeeNames(week.Employees),
		Stats:     service.NewScheduleStats(run),
	}, nil
}

// generateStored 通过自动排班服务生成并保存
func (app *App) generateStored(ctx context.Context, dbPath string, week *Week) (Summary, error) {
	if week.DepartmentID == uuid.Nil {
		return Summary{}, fmt.Errorf("使用 --db 时输入文件需要 departmentId")
	}
	db, err := database.OpenSQLite(dbPath)
	if err != nil {
		return Summary{}, err
	}
	defer db.Close()

	employees := repository.NewEmployeeRepository(db)
	svc := service.NewAutoScheduleService(
		employees,
		repository.NewVacationRepository(db),
		repository.NewScheduleRepository(db),
		db,
		app.Scheduler,
	)
	res, err := svc.GenerateWeeklySchedule(ctx, service.GenerateRequest{
		WeekStart:        week.WeekStart,
		DepartmentID:     week.DepartmentID,
		BusinessHours:    week.BusinessHours,
		Preferences:      week.Preferences,
		SourceWeek:       week.SourceWeek,
		MinimumEmployees: week.MinimumEmployees,
		BalanceRoles:     week.BalanceRoles,
	})
	if err != nil {
		return Summary{}, err
	}

	staff, err := employees.ListActiveByDepartment(ctx, week.DepartmentID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		WeekStart: res.WeekStart,
		WeekEnd:   res.WeekEnd,
		Schedule:  res.Schedule,
		Names:     employeeNames(staff),
		Stats:     res.Stats,
	}, nil
}

func newImportCmd(app *App) *cobra.Command {
	var file, dbPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "将输入文件中的员工与休假导入 SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := LoadWeekFile(file)
			if err != nil {
				return err
			}
			if week.DepartmentID == uuid.Nil {
				return fmt.Errorf("输入文件需要 departmentId")
			}

			db, err := database.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			err = db.Transaction(ctx, func(tx *database.Tx) error {
				employees := repository.NewEmployeeRepository(tx)
				for _, emp := range week.Employees {
					if err := employees.Create(ctx, emp); err != nil {
						return err
					}
				}
				vacations := repository.NewVacationRepository(tx)
				for _, v := range week.Vacations {
					if err := vacations.Create(ctx, v); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "已导入 %d 名员工、%d 条休假\n", len(week.Employees), len(week.Vacations))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "输入文件（YAML 或 JSON）")
	cmd.Flags().StringVar(&dbPath, "db", "planning.db", "SQLite 数据库路径")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	var dbPath, department, week string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "查看已保存的周排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptID, err := uuid.Parse(department)
			if err != nil {
				return fmt.Errorf("--department: %w", err)
			}
			weekStart, err := model.ParseDate(week)
			if err != nil {
				return fmt.Errorf("--week: %w", err)
			}

			db, err := database.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			entries, err := repository.NewScheduleRepository(db).ListByWeek(ctx, deptID, model.WeekMonday(weekStart))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(app.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{"success": true, "data": entries})
			}

			staff, err := repository.NewEmployeeRepository(db).ListActiveByDepartment(ctx, deptID)
			if err != nil {
				return err
			}
			monday := model.WeekMonday(weekStart)
			fmt.Fprint(app.Out, FormatSchedule(Summary{
				WeekStart: model.FormatDate(monday),
				WeekEnd:   model.FormatDate(model.WeekEnd(monday)),
				Schedule:  entries,
				Names:     employeeNames(staff),
			}))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "planning.db", "SQLite 数据库路径")
	cmd.Flags().StringVar(&department, "department", "", "部门ID")
	cmd.Flags().StringVar(&week, "week", model.FormatDate(time.Now()), "所在周的任意日期 (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	_ = cmd.MarkFlagRequired("department")

	return cmd
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "planctl %s (%s, %s)\n", app.Version, app.GitCommit, app.BuildTime)
		},
	}
}
