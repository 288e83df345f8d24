package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresSessionRepo はPostgreSQLを使用したscsセッションストア。
// データはscsがエンコードした不透明なバイト列として保存する。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindCtx は有効期限内のセッションデータを取得する。
// 存在しないか期限切れの場合はfound=falseを返す。
func (r *PostgresSessionRepo) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE token = $1 AND expiry > now()`,
		token,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find session: %w", err)
	}

	return data, true, nil
}

// CommitCtx はセッションデータをUPSERTする。
func (r *PostgresSessionRepo) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, data, expiry) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry`,
		token, b, expiry.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// DeleteCtx は指定トークンのセッションを削除する。存在しない場合もエラーにしない。
func (r *PostgresSessionRepo) DeleteCtx(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Find はscs.Storeを満たすためのcontextなし版。
func (r *PostgresSessionRepo) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

// Commit はscs.Storeを満たすためのcontextなし版。
func (r *PostgresSessionRepo) Commit(token string, b []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, b, expiry)
}

// Delete はscs.Storeを満たすためのcontextなし版。
func (r *PostgresSessionRepo) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}

// DeleteExpired はnowより前に期限切れとなったセッションを削除し、削除件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expiry < $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
