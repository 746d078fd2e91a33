// Package slicer 将营业时间切分为候选班次块
package slicer

import (
	"sort"

	"github.com/smartplanning/planning/pkg/model"
)

// 常见高峰时段
var (
	LunchPeak   = model.NewHourRange(11, 14)
	EveningPeak = model.NewHourRange(16, 19)
)

// 块长度
const (
	singleBlockMax = 4 // 不超过该时长整天一个块
	splitBlockMax  = 6 // 不超过该时长围绕中点切两块
	targetBlock    = 4 // 更长的营业日每块约 4 小时，相邻块重叠 1 小时
)

// Block 候选班次块
type Block struct {
	model.HourRange
	Priority int
}

// Slice 切分营业区间，按优先级从高到低返回
func Slice(open model.HourRange) []Block {
	if open.Start >= open.End {
		return nil
	}

	var ranges []model.HourRange
	d := open.Duration()
	switch {
	case d <= singleBlockMax:
		ranges = []model.HourRange{open}
	case d <= splitBlockMax:
		mid := open.Start + d/2
		ranges = []model.HourRange{
			model.NewHourRange(open.Start, mid+1),
			model.NewHourRange(mid-1, open.End),
		}
	default:
		ranges = overlapping(open)
	}

	blocks := make([]Block, len(ranges))
	for i, r := range ranges {
		blocks[i] = Block{HourRange: r, Priority: Priority(r)}
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Priority > blocks[j].Priority
	})
	return blocks
}

// overlapping 按相邻重叠 1 小时切成至少三块，覆盖整个区间
func overlapping(open model.HourRange) []model.HourRange {
	d := open.Duration()
	n := (d - 1 + targetBlock - 2) / (targetBlock - 1)
	if n < 3 {
		n = 3
	}
	total := d + n - 1
	base, extra := total/n, total%n

	ranges := make([]model.HourRange, 0, n)
	start := open.Start
	for i := 0; i < n; i++ {
		length := base
		if i < extra {
			length++
		}
		end := start + length
		if end > open.End || i == n-1 {
			end = open.End
		}
		ranges = append(ranges, model.NewHourRange(start, end))
		start = end - 1
	}
	return ranges
}

// Priority 块优先级：覆盖午高峰 +10，覆盖晚高峰 +8，再加上时长
func Priority(r model.HourRange) int {
	p := r.Duration()
	if r.Overlaps(LunchPeak) {
		p += 10
	}
	if r.Overlaps(EveningPeak) {
		p += 8
	}
	return p
}
