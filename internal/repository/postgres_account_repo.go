package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/pokedex/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = pq.ErrorCode("23505")

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByEmail は正規化済みemailでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT email, secret, created_at FROM accounts WHERE email = $1`,
		email,
	).Scan(&account.Email, &account.Secret, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	return account, nil
}

// CreateWithCollection はアカウントと空のコレクションを同一トランザクションで作成する。
func (r *PostgresAccountRepo) CreateWithCollection(ctx context.Context, account *model.Account, collection *model.Collection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (email, secret, created_at) VALUES ($1, $2, $3)`,
		account.Email, account.Secret, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	itemIDs := collection.ItemIDs
	if itemIDs == nil {
		itemIDs = []string{}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO collections (id, email, item_ids, created_at) VALUES ($1, $2, $3, $4)`,
		collection.ID, collection.Email, pq.Array(itemIDs), collection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindCollectionByEmail はアカウントのコレクションを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindCollectionByEmail(ctx context.Context, email string) (*model.Collection, error) {
	collection := &model.Collection{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, item_ids, created_at FROM collections WHERE email = $1`,
		email,
	).Scan(&collection.ID, &collection.Email, pq.Array(&collection.ItemIDs), &collection.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection by email: %w", err)
	}
	if collection.ItemIDs == nil {
		collection.ItemIDs = []string{}
	}

	return collection, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
