// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	apperrors "github.com/smartplanning/planning/pkg/errors"
)

// DB 数据库接口，*database.DB 与 *database.Tx 均满足
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// dbError 包装数据库错误，无记录时返回 NOT_FOUND
func dbError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.CodeNotFound, message)
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}

// dateOnly 取日期部分，兼容驱动返回的时间戳文本
func dateOnly(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// placeholders 生成 $from, $from+1, ... 占位符列表
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}
