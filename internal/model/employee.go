package model

import (
	"strings"
	"time"
)

// EmployeeStatusVerified は確定済み従業員を示すステータス。
// 確定済み従業員は更新・削除できない。
const EmployeeStatusVerified = "verified"

// Employee は従業員レコードを表す。
type Employee struct {
	ID           int64
	Name         string
	Email        string
	JobTitle     string
	Phone        string
	ImageURL     string
	EmployeeCode string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsVerified は確定済み従業員かどうかを返す。大文字小文字は区別しない。
func (e *Employee) IsVerified() bool {
	return strings.EqualFold(e.Status, EmployeeStatusVerified)
}
