package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smartplanning/planning/internal/service"
	"github.com/smartplanning/planning/pkg/model"
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleName   = lipgloss.NewStyle().Bold(true).Width(20)
	styleGood   = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarn   = lipgloss.NewStyle().Foreground(colorYellow)
	styleBad    = lipgloss.NewStyle().Foreground(colorRed)
)

// Summary 终端输出所需的排班摘要
type Summary struct {
	WeekStart string
	WeekEnd   string
	Schedule  []model.WeeklySchedule
	Names     map[model.EmployeeID]string
	Stats     service.ScheduleStats
}

func header(text string) string {
	return fmt.Sprintf("%s\n%s", styleHeader.Render(text), styleDim.Render(strings.Repeat("─", lipgloss.Width(text))))
}

// FormatSchedule 按天列出班次
func FormatSchedule(s Summary) string {
	var b strings.Builder
	b.WriteString(header(fmt.Sprintf("排班 %s ~ %s", s.WeekStart, s.WeekEnd)))
	b.WriteString("\n")

	entries := append([]model.WeeklySchedule(nil), s.Schedule...)
	sort.SliceStable(entries, func(i, j int) bool {
		return s.name(entries[i].EmployeeID) < s.name(entries[j].EmployeeID)
	})

	for _, day := range model.Weekdays {
		var lines []string
		dayHours := 0.0
		for _, entry := range entries {
			shifts, ok := entry.ScheduleData[day]
			if !ok || len(shifts) == 0 {
				continue
			}
			parts := make([]string, len(shifts))
			for i, sh := range shifts {
				parts[i] = fmt.Sprintf("%02d-%02d %s", sh.Start, sh.End, styleDim.Render(sh.Origin.String()))
				dayHours += sh.Duration()
			}
			lines = append(lines, "  "+styleName.Render(s.name(entry.EmployeeID))+strings.Join(parts, "  "))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s %s\n", styleHeader.Render(string(day)), styleDim.Render(fmt.Sprintf("(%.0f 小时)", dayHours)))
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSummary 班次列表附统计
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(FormatSchedule(s))
	b.WriteString("\n")
	b.WriteString(header("统计"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  评分        %s\n", scoreStyle(s.Stats.Score).Render(fmt.Sprintf("%.2f", s.Stats.Score)))
	fmt.Fprintf(&b, "  偏好满足率  %.0f%%\n", s.Stats.PreferenceMatchRate*100)
	fmt.Fprintf(&b, "  人均工时    %.1f\n", s.Stats.AverageWeeklyHours)
	fmt.Fprintf(&b, "  迭代次数    %d\n", s.Stats.Iterations)

	if len(s.Stats.OverworkedEmployees) > 0 {
		b.WriteString("\n" + styleWarn.Render("超出合同工时:") + "\n")
		for _, o := range s.Stats.OverworkedEmployees {
			fmt.Fprintf(&b, "  %s +%.1f 小时 (%.1f / %.1f)\n", s.name(o.EmployeeID), o.Difference, o.AssignedHours, o.ContractHours)
		}
	}
	if len(s.Stats.UncoveredHours) > 0 {
		b.WriteString("\n" + styleBad.Render("人手不足:") + "\n")
		for _, p := range s.Stats.UncoveredHours {
			fmt.Fprintf(&b, "  %s %02d-%02d 需要 %d 人，实际 %d 人\n", p.Day, p.StartHour, p.EndHour, p.Required, p.Assigned)
		}
	} else {
		b.WriteString("\n" + styleGood.Render("所有营业时段均已覆盖") + "\n")
	}
	return b.String()
}

func (s Summary) name(id model.EmployeeID) string {
	if name, ok := s.Names[id]; ok && name != "" {
		return name
	}
	return id.String()[:8]
}

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 80:
		return styleGood
	case score >= 50:
		return styleWarn
	default:
		return styleBad
	}
}

// employeeNames 员工ID到姓名的映射
func employeeNames(employees []*model.Employee) map[model.EmployeeID]string {
	names := make(map[model.EmployeeID]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.FullName()
	}
	return names
}
