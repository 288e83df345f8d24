// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/hitoshi/pokedex/internal/model"
)

// ErrAccountExists は同じemailのアカウントが既に存在するために作成できなかったことを表す。
// 同時登録で後から到着した側のINSERTが一意制約違反になった場合に返る。
var ErrAccountExists = errors.New("account already exists")

// AccountRepository はアカウントとコレクションの永続化インターフェース。
type AccountRepository interface {
	// FindByEmail は正規化済みemailでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// CreateWithCollection はアカウントと空のコレクションを同一トランザクションで作成する。
	// 既に同じemailが存在する場合はErrAccountExistsを返し、どちらも作成しない。
	CreateWithCollection(ctx context.Context, account *model.Account, collection *model.Collection) error

	// FindCollectionByEmail はアカウントのコレクションを取得する。見つからない場合はnilを返す。
	FindCollectionByEmail(ctx context.Context, email string) (*model.Collection, error)
}

// SessionRepository はscsのセッションストアに期限切れ削除を加えたインターフェース。
type SessionRepository interface {
	scs.CtxStore

	// DeleteExpired はexpiryがnowより前のセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
