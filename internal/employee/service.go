// Package employee は従業員レコードのCRUDビジネスロジックを提供する。
package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/staffman/internal/model"
	"github.com/hitoshi/staffman/internal/repository"
)

var (
	// ErrNotFound は対象の従業員が存在しない。
	ErrNotFound = errors.New("employee not found")
	// ErrVerified は検証済み従業員への変更・削除の拒否。
	ErrVerified = errors.New("verified employee cannot be modified")
)

// Service は従業員管理のビジネスロジックを提供する。
type Service struct {
	repo repository.EmployeeRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.EmployeeRepository) *Service {
	return &Service{repo: repo}
}

// List は全従業員を取得する。
func (s *Service) List(ctx context.Context) ([]*model.Employee, error) {
	employees, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// Find は指定IDの従業員を取得する。存在しない場合はErrNotFoundを返す。
func (s *Service) Find(ctx context.Context, id int64) (*model.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}
	return employee, nil
}

// ListByStatus は指定ステータスの従業員一覧を取得する。
func (s *Service) ListByStatus(ctx context.Context, status string) ([]*model.Employee, error) {
	employees, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees by status: %w", err)
	}
	return employees, nil
}

// Add は新しい従業員を登録する。
// 従業員コードはサーバー側で採番し、呼び出し側の指定は無視する。
func (s *Service) Add(ctx context.Context, employee *model.Employee) (*model.Employee, error) {
	now := time.Now()
	employee.EmployeeCode = uuid.New().String()
	employee.CreatedAt = now
	employee.UpdatedAt = now

	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	slog.Info("employee added",
		slog.Int64("id", employee.ID),
		slog.String("employee_code", employee.EmployeeCode),
	)
	return employee, nil
}

// Update は従業員を更新する。
// 対象が存在しない場合はErrNotFound、検証済みの場合はErrVerifiedを返す。
// 従業員コードと作成日時は既存の値を維持する。
func (s *Service) Update(ctx context.Context, employee *model.Employee) (*model.Employee, error) {
	existing, err := s.repo.FindByID(ctx, employee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if existing.IsVerified() {
		return nil, ErrVerified
	}

	employee.EmployeeCode = existing.EmployeeCode
	employee.CreatedAt = existing.CreatedAt
	employee.UpdatedAt = time.Now()

	updated, err := s.repo.Update(ctx, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	if !updated {
		return nil, ErrNotFound
	}

	slog.Info("employee updated", slog.Int64("id", employee.ID))
	return employee, nil
}

// Delete は指定IDの従業員を削除する。
// 対象が存在しない場合はErrNotFound、検証済みの場合はErrVerifiedを返す。
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load employee: %w", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	if existing.IsVerified() {
		return ErrVerified
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	slog.Info("employee deleted", slog.Int64("id", id))
	return nil
}
