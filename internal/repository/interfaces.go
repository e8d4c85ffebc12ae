// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/staffman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	// ユーザー名は大文字小文字を区別する。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// ExistsByUsername は指定ユーザー名のユーザーが存在するかどうかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。ユーザー名の一意制約違反はエラーを返す。
	Create(ctx context.Context, user *model.User) error
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークンを作成する。
	Create(ctx context.Context, token *model.RefreshToken) error

	// FindByToken は指定された値のトークンを取得する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, value string) (*model.RefreshToken, error)

	// DeleteByUserID は指定ユーザーの全リフレッシュトークンを削除する。
	// 期限切れトークン検出時の一括失効で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EmployeeRepository は従業員データの永続化インターフェース。
type EmployeeRepository interface {
	// FindAll は全従業員を取得する。
	FindAll(ctx context.Context) ([]*model.Employee, error)

	// FindByID は指定IDの従業員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Employee, error)

	// FindByStatus は指定ステータスの従業員一覧を取得する。
	FindByStatus(ctx context.Context, status string) ([]*model.Employee, error)

	// Create は従業員を作成し、採番されたIDをemployee.IDに設定する。
	Create(ctx context.Context, employee *model.Employee) error

	// Update は従業員を更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, employee *model.Employee) (bool, error)

	// DeleteByID は指定IDの従業員を削除する。対象が存在しない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
