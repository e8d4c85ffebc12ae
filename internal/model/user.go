// Package model はドメインモデルを定義する。
package model

import "time"

// RolePrefix は権限名に付与する接頭辞。
// ロール "ADMIN" は権限 "ROLE_ADMIN" として扱われる。
const RolePrefix = "ROLE_"

// DefaultRole は登録時にロール未指定の場合に付与されるロール。
const DefaultRole = "USER"

// RoleAdmin は従業員の更新・削除が許可される管理者ロール。
const RoleAdmin = "ADMIN"

// User は認証対象のユーザーを表す。
// PasswordHashはbcryptハッシュであり、ログ出力およびAPIレスポンスに含めてはならない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorities はユーザーのロールから導出される権限の一覧を返す。
func (u *User) Authorities() []string {
	return []string{RolePrefix + u.Role}
}

// RefreshToken は長期有効な不透明トークンを表す。
// 値は推測不可能なランダム文字列で、1ユーザーが複数保持できる。
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired はトークンが期限切れかどうかを返す。
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Principal は1リクエストの間だけ有効な、解決済みの認証主体を表す。
// 検証済みトークンのクレームまたはユーザーレコードから再構築される。
type Principal struct {
	Username    string
	Authorities []string
}

// HasAuthority は指定された権限を保持しているかどうかを返す。
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// HasRole はロール名（接頭辞なし）で権限を保持しているかどうかを返す。
func (p *Principal) HasRole(role string) bool {
	return p.HasAuthority(RolePrefix + role)
}

// PrincipalFromUser はユーザーレコードからPrincipalを構築する。
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		Username:    u.Username,
		Authorities: u.Authorities(),
	}
}
