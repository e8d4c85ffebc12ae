// Package token は署名付きベアラートークンの発行と検証を提供する。
//
// アクセストークンとリフレッシュトークンは独立した秘密鍵とTTLを持ち、
// 一方の鍵の漏洩がもう一方のトークンの偽造につながらないようにする。
// 発行済みトークンの個別失効はできない（denylistを持たない）設計であり、
// 失効は鍵ローテーションか自然満了のみで行う。
package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind はトークンの種別を表す。
type Kind string

const (
	// KindAccess は短期有効なアクセストークン。
	KindAccess Kind = "access"
	// KindRefresh は長期有効なリフレッシュトークン。
	KindRefresh Kind = "refresh"
)

// ErrKind はパース失敗の分類を表す。
// 呼び出し側はこの分類をHTTPステータスへマッピングする。
type ErrKind string

const (
	// ErrKindMalformed は構造的に不正なトークン。
	ErrKindMalformed ErrKind = "malformed"
	// ErrKindExpired は有効期限切れのトークン。
	ErrKindExpired ErrKind = "expired"
	// ErrKindInvalidSignature は署名検証に失敗したトークン。
	ErrKindInvalidSignature ErrKind = "invalid_signature"
	// ErrKindUnsupported はサポート外の署名方式等のトークン。
	ErrKindUnsupported ErrKind = "unsupported"
)

// ParseError はパース失敗を分類付きで表す。
// 生のパースエラーメッセージはクライアントに返さないこと。
type ParseError struct {
	Kind ErrKind
	err  error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	return fmt.Sprintf("token parse failed (%s): %v", e.Kind, e.err)
}

// Unwrap は元のエラーを返す。ログ用途のみに使用する。
func (e *ParseError) Unwrap() error {
	return e.err
}

// Claims は署名付きトークンに埋め込むクレームを表す。
// Rolesはアクセストークンにのみ設定される。
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Config はCodecの設定を保持する。
// アクセス用とリフレッシュ用の秘密鍵・TTLは独立していなければならない。
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec は署名付きトークンの発行とパースを行う。
// 状態を持たず、複数ゴルーチンから同時に使用できる。
type Codec struct {
	config Config
}

// NewCodec はCodecを生成する。
// 秘密鍵の欠落や両鍵の一致は設定ミスとして起動時に失敗させる。
func NewCodec(config Config) (*Codec, error) {
	if len(config.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(config.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if bytes.Equal(config.AccessSecret, config.RefreshSecret) {
		return nil, errors.New("access and refresh token secrets must be different")
	}
	return &Codec{config: config}, nil
}

// Mint は指定された主体と種別の署名付きトークンを発行する。
// issued-atは現在時刻、expiryは種別ごとのTTLで設定する。
func (c *Codec) Mint(subject string, roles []string, kind Kind) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
		},
	}
	// ロールクレームはアクセストークンにのみ含める
	if kind == KindAccess {
		claims.Roles = roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret(kind))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse はトークンの署名と有効期限を検証し、クレームを返す。
// いかなる失敗も4分類のいずれかとして報告し、空のクレームを黙って返すことはない。
func (c *Codec) Parse(tokenString string, kind Kind) (*Claims, *ParseError) {
	return c.parse(tokenString, kind, true)
}

// ExtractSubject はトークンの主体（ユーザー名）を返す。パース失敗時は失敗する。
func (c *Codec) ExtractSubject(tokenString string, kind Kind) (string, *ParseError) {
	claims, perr := c.Parse(tokenString, kind)
	if perr != nil {
		return "", perr
	}
	return claims.Subject, nil
}

// ExtractExpiry はトークンの有効期限を返す。
// 署名は検証するが有効期限の検証は行わないため、期限切れトークンにも使える。
func (c *Codec) ExtractExpiry(tokenString string, kind Kind) (time.Time, *ParseError) {
	claims, perr := c.parse(tokenString, kind, false)
	if perr != nil {
		return time.Time{}, perr
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, &ParseError{Kind: ErrKindMalformed, err: errors.New("token has no expiry claim")}
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired はトークンの有効期限が現在時刻以前かどうかを返す。
// パースできないトークンは期限切れ扱いとする。
func (c *Codec) IsExpired(tokenString string, kind Kind) bool {
	expiry, perr := c.ExtractExpiry(tokenString, kind)
	if perr != nil {
		return true
	}
	return !expiry.After(time.Now())
}

// parse は署名検証とクレームの取り出しを行う。
// validateClaimsがfalseの場合は有効期限の検証をスキップする。
func (c *Codec) parse(tokenString string, kind Kind, validateClaims bool) (*Claims, *ParseError) {
	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret(kind), nil
	}, opts...)
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, &ParseError{Kind: ErrKindMalformed, err: errors.New("token is not valid")}
	}
	return claims, nil
}

// classifyParseError はjwtライブラリのエラーを4分類へマッピングする。
// 分類の優先順位: 構造不正 → 方式サポート外 → 署名不正 → 期限切れ。
func classifyParseError(err error) *ParseError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &ParseError{Kind: ErrKindMalformed, err: err}
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return &ParseError{Kind: ErrKindUnsupported, err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &ParseError{Kind: ErrKindInvalidSignature, err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &ParseError{Kind: ErrKindExpired, err: err}
	default:
		return &ParseError{Kind: ErrKindMalformed, err: err}
	}
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.config.RefreshSecret
	}
	return c.config.AccessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.config.RefreshTTL
	}
	return c.config.AccessTTL
}
