// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// ProviderSentinel はローカルパスワードを持たずGoogleでのみ認証するアカウントの
// secret列に保存する予約値。bcryptハッシュがこの値と一致することはない。
const ProviderSentinel = "GOOGLE"

// SecretMode はアカウントの認証方式を表す。
type SecretMode string

const (
	// SecretModeLocal はbcryptハッシュを保持するローカルアカウント。
	SecretModeLocal SecretMode = "local"
	// SecretModeProvider は外部IdP（Google）でのみ認証するアカウント。
	SecretModeProvider SecretMode = "google"
)

// Account は登録済みアカウントを表す。emailが主キー。
type Account struct {
	Email     string
	Secret    string // bcryptハッシュ または ProviderSentinel
	CreatedAt time.Time
}

// Mode はsecretの内容からアカウントの認証方式を判定する。
func (a *Account) Mode() SecretMode {
	if a.Secret == ProviderSentinel {
		return SecretModeProvider
	}
	return SecretModeLocal
}

// Collection はアカウントに1対1で紐づく所持アイテムの記録。
// 登録時にアカウントと同一トランザクションで空の状態で作成される。
type Collection struct {
	ID        string
	Email     string
	ItemIDs   []string
	CreatedAt time.Time
}

// NormalizeEmail はメールアドレスを比較・保存用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
