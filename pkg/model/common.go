// Package model 定义排班引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HourRange 小时区间 [Start, End)，0-24 刻度
type HourRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewHourRange 创建小时区间
func NewHourRange(start, end int) HourRange {
	return HourRange{Start: start, End: end}
}

// Duration 返回区间时长（小时）
func (r HourRange) Duration() int {
	return r.End - r.Start
}

// Valid 检查区间是否合法
func (r HourRange) Valid() bool {
	return r.Start >= 0 && r.End <= 24 && r.Start < r.End
}

// Contains 检查某小时是否落在区间内
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

// Covers 检查区间是否完整包含另一个区间
func (r HourRange) Covers(other HourRange) bool {
	return r.Start <= other.Start && r.End >= other.End
}

// Within 检查区间是否完全位于另一个区间内
func (r HourRange) Within(other HourRange) bool {
	return other.Covers(r)
}

// Overlaps 检查两个区间是否重叠
func (r HourRange) Overlaps(other HourRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// String 返回 "9-17" 形式
func (r HourRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// UnmarshalJSON 同时支持 {"start":9,"end":12} 与 [9,12] 两种写法
func (r *HourRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("小时区间需要2个元素，实际为%d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("无法解析小时区间: %w", err)
	}
	if obj.Start == nil || obj.End == nil {
		return fmt.Errorf("小时区间缺少 start 或 end")
	}
	r.Start, r.End = *obj.Start, *obj.End
	return nil
}

// UnmarshalYAML 同时支持映射与序列两种写法
func (r *HourRange) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []int
	if err := unmarshal(&pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("小时区间需要2个元素，实际为%d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Start int `yaml:"start"`
		End   int `yaml:"end"`
	}
	if err := unmarshal(&obj); err != nil {
		return err
	}
	r.Start, r.End = obj.Start, obj.End
	return nil
}
