package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cropview/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// ListAll は全ユーザーのスナップショットを作成日時昇順で返す。
// role・nameの欠損はこの境界でデフォルト値に正規化する。
func (r *PostgresUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, COALESCE(NULLIF(name, ''), $1), COALESCE(role, ''), created_at
		 FROM users
		 ORDER BY created_at`,
		model.DefaultUserName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var role string
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Role = model.NormalizeRole(role)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, COALESCE(NULLIF(name, ''), $2), COALESCE(role, ''), created_at
		 FROM users WHERE id = $1`,
		id, model.DefaultUserName,
	).Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	user.Role = model.NormalizeRole(role)
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
