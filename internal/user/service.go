// Package user はログイン中アカウントのプロフィール参照を提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/pokedex/internal/model"
)

// ErrAccountNotFound はセッションに紐付いたアカウントが存在しないことを表す。
// セッション発行後にアカウントが削除された場合に起こる。
var ErrAccountNotFound = errors.New("account not found")

// AccountReader はプロフィール表示に必要なアカウント参照インターフェース。
// repository.AccountRepositoryの部分集合として定義する。
type AccountReader interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindCollectionByEmail(ctx context.Context, email string) (*model.Collection, error)
}

// Profile はアカウントとコレクションをまとめた表示用の値。
type Profile struct {
	Email        string           `json:"email"`
	Mode         model.SecretMode `json:"mode"`
	CollectionID string           `json:"collection_id"`
	ItemIDs      []string         `json:"item_ids"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Service はプロフィール参照のサービス層。
type Service struct {
	accounts AccountReader
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(accounts AccountReader) *Service {
	return &Service{accounts: accounts}
}

// Profile は認証済みemailのプロフィールを返す。
// アカウントが存在しない場合はErrAccountNotFoundを返す。
func (s *Service) Profile(ctx context.Context, email string) (*Profile, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	profile := &Profile{
		Email:     account.Email,
		Mode:      account.Mode(),
		ItemIDs:   []string{},
		CreatedAt: account.CreatedAt,
	}

	collection, err := s.accounts.FindCollectionByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		// アカウントとコレクションは同一トランザクションで作られるため通常は起きない
		slog.Warn("account has no collection", slog.String("email", email))
		return profile, nil
	}

	profile.CollectionID = collection.ID
	if collection.ItemIDs != nil {
		profile.ItemIDs = collection.ItemIDs
	}
	return profile, nil
}
