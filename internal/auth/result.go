package auth

import "github.com/hitoshi/pokedex/internal/model"

// Result は認証判定の結果。AuthenticatedかRejectedのどちらか一方になる。
// ストアやIdPの障害はResultではなくerrorで返す。
type Result struct {
	// Email は認証に成功したアカウントの正規化済みメールアドレス。
	Email string
	// Rejection はユーザーに提示する拒否理由。
	Rejection *model.APIError
	// ExistingMode はALREADY_REGISTEREDの場合の既存アカウントの認証方式。
	ExistingMode model.SecretMode
}

// Authenticated は認証成功の結果を生成する。
func Authenticated(email string) Result {
	return Result{Email: email}
}

// Rejected は拒否の結果を生成する。
func Rejected(reason *model.APIError) Result {
	return Result{Rejection: reason}
}

func alreadyRegistered(existing model.SecretMode) Result {
	return Result{
		Rejection:    model.NewAlreadyRegisteredError(existing),
		ExistingMode: existing,
	}
}

// OK は認証に成功したかを返す。
func (r Result) OK() bool {
	return r.Rejection == nil && r.Email != ""
}
