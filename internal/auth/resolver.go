package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pokedex/internal/model"
	"github.com/hitoshi/pokedex/internal/repository"
)

// ErrEmptyClaim はIdPから受け取ったメールアドレスが空であることを表す。
var ErrEmptyClaim = errors.New("provider claim has no email")

// Resolver はローカル認証とGoogle認証の4つの入口を、アカウントの状態に応じて判定する。
// 判定結果はResultで返し、errorはストアやハッシュ処理の障害のみに使う。
type Resolver struct {
	accounts repository.AccountRepository
	hasher   Hasher
	now      func() time.Time
	newID    func() string
}

// NewResolver はResolverを生成する。
func NewResolver(accounts repository.AccountRepository, hasher Hasher) *Resolver {
	return &Resolver{
		accounts: accounts,
		hasher:   hasher,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// LocalLogin はメールアドレスとパスワードによるログインを判定する。
func (r *Resolver) LocalLogin(ctx context.Context, email, secret string) (Result, error) {
	email = model.NormalizeEmail(email)
	if email == "" || secret == "" {
		return r.reject("local_login", email, model.NewMissingCredentialsError()), nil
	}
	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return r.reject("local_login", email, model.NewUserNotRegisteredError()), nil
	}

	// センチネルをハッシュとして照合しない
	if account.Mode() == model.SecretModeProvider {
		return r.reject("local_login", email, model.NewWrongProviderError()), nil
	}
	if len(secret) > MaxSecretBytes {
		return r.reject("local_login", email, model.NewSecretTooLongError(MaxSecretBytes)), nil
	}

	ok, err := r.hasher.Verify(secret, account.Secret)
	if err != nil {
		return Result{}, fmt.Errorf("failed to verify secret: %w", err)
	}
	if !ok {
		return r.reject("local_login", email, model.NewIncorrectSecretError()), nil
	}

	slog.Info("local login succeeded", slog.String("email", email))
	return Authenticated(account.Email), nil
}

// ProviderLogin はGoogleから受け取ったメールアドレスによるログインを判定する。
func (r *Resolver) ProviderLogin(ctx context.Context, claim string) (Result, error) {
	email := model.NormalizeEmail(claim)
	if email == "" {
		return Result{}, ErrEmptyClaim
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return r.reject("provider_login", email, model.NewNotRegisteredError()), nil
	}
	if account.Mode() == model.SecretModeLocal {
		return r.reject("provider_login", email, model.NewWrongAccountTypeError()), nil
	}

	slog.Info("provider login succeeded", slog.String("email", email))
	return Authenticated(account.Email), nil
}

// ProviderRegistration はGoogleアカウントによる新規登録を判定する。
// 未登録の場合はセンチネルを持つアカウントと空のコレクションを作成する。
func (r *Resolver) ProviderRegistration(ctx context.Context, claim string) (Result, error) {
	email := model.NormalizeEmail(claim)
	if email == "" {
		return Result{}, ErrEmptyClaim
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find account: %w", err)
	}
	if account != nil {
		return r.rejectExisting("provider_registration", email, account.Mode()), nil
	}

	return r.create(ctx, "provider_registration", email, model.ProviderSentinel)
}

// LocalRegistration はメールアドレスとパスワードによる新規登録を判定する。
// 入力検証はストアへのアクセスより前に行う。
func (r *Resolver) LocalRegistration(ctx context.Context, email, secret, confirm string) (Result, error) {
	email = model.NormalizeEmail(email)
	if email == "" || secret == "" {
		return r.reject("local_registration", email, model.NewMissingCredentialsError()), nil
	}
	if secret != confirm {
		return r.reject("local_registration", email, model.NewSecretMismatchError()), nil
	}
	if len(secret) > MaxSecretBytes {
		return r.reject("local_registration", email, model.NewSecretTooLongError(MaxSecretBytes)), nil
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find account: %w", err)
	}
	if account != nil {
		return r.rejectExisting("local_registration", email, account.Mode()), nil
	}

	hash, err := r.hasher.Hash(secret)
	if err != nil {
		return Result{}, fmt.Errorf("failed to hash secret: %w", err)
	}

	return r.create(ctx, "local_registration", email, hash)
}

// create はアカウントと空のコレクションを作成する。
// 存在確認との間に同じemailで登録された場合はALREADY_REGISTEREDとして扱う。
func (r *Resolver) create(ctx context.Context, op, email, secret string) (Result, error) {
	now := r.now()
	account := &model.Account{Email: email, Secret: secret, CreatedAt: now}
	collection := &model.Collection{ID: r.newID(), Email: email, ItemIDs: []string{}, CreatedAt: now}

	err := r.accounts.CreateWithCollection(ctx, account, collection)
	if errors.Is(err, repository.ErrAccountExists) {
		existing, findErr := r.accounts.FindByEmail(ctx, email)
		if findErr != nil {
			return Result{}, fmt.Errorf("failed to find account after conflict: %w", findErr)
		}
		mode := model.SecretModeLocal
		if existing != nil {
			mode = existing.Mode()
		}
		return r.rejectExisting(op, email, mode), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered",
		slog.String("email", email),
		slog.String("mode", string(account.Mode())),
	)
	return Authenticated(email), nil
}

func (r *Resolver) reject(op, email string, reason *model.APIError) Result {
	slog.Info("authentication rejected",
		slog.String("op", op),
		slog.String("email", email),
		slog.String("code", reason.Code),
	)
	return Rejected(reason)
}

func (r *Resolver) rejectExisting(op, email string, mode model.SecretMode) Result {
	result := alreadyRegistered(mode)
	slog.Info("authentication rejected",
		slog.String("op", op),
		slog.String("email", email),
		slog.String("code", result.Rejection.Code),
		slog.String("existing_mode", string(mode)),
	)
	return result
}
