package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const accountColumns = `id, username, email, first_name, last_name, password_hash, role, is_active, created_at, updated_at`

type accountRepository struct {
	db sqlx.ExtContext
}

func NewAccountRepository(db sqlx.ExtContext) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.Role,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", mapError(err))
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &account, query, id); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", mapError(err))
	}
	return &account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(username) = LOWER($1)`
	if err := sqlx.GetContext(ctx, r.db, &account, query, username); err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", mapError(err))
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET email = $1, first_name = $2, last_name = $3, password_hash = $4,
			role = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	account.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.Role,
		account.IsActive,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", mapError(err))
	}
	return expectAffected(result, "account")
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", mapError(err))
	}
	return expectAffected(result, "account")
}

func (r *accountRepository) List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	var w where
	if filters != nil {
		if filters.Role != "" {
			w.add("role = $%d", filters.Role)
		}
		if filters.IsActive != nil {
			w.add("is_active = $%d", *filters.IsActive)
		}
		if filters.Search != "" {
			w.add("(username ILIKE $%[1]d OR first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+filters.Search+"%")
		}
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + w.sql() + ` ORDER BY username`

	var accounts []*model.Account
	if err := sqlx.SelectContext(ctx, r.db, &accounts, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	var rows []struct {
		Role  model.Role `db:"role"`
		Count int        `db:"count"`
	}
	query := `SELECT role, COUNT(*) AS count FROM accounts GROUP BY role`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count accounts by role: %w", err)
	}

	counts := make(map[model.Role]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func (r *accountRepository) ListRecent(ctx context.Context, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1`
	if err := sqlx.SelectContext(ctx, r.db, &accounts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent accounts: %w", err)
	}
	return accounts, nil
}
