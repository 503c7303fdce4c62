package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"internportal/internal/common"
	"internportal/internal/domain/account"
)

const accountColumns = `id, role, email, password_hash, name, department, year, company_name, contact_name, approved, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, acc account.Account) (*account.Account, error) {
	if acc.ID == "" {
		acc.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	acc.Email = account.NormalizeEmail(acc.Email)
	acc.CreatedAt = now
	acc.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		acc.ID, acc.Role, acc.Email, acc.PasswordHash, acc.Name, acc.Department, acc.Year,
		acc.CompanyName, acc.ContactName, acc.Approved, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeDuplicateEmail, "email already registered", err)
		}
		return nil, storeError("failed to create account", err)
	}
	return &acc, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id common.UUID) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccountRow(row)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, role account.Role, email string) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE role = $1 AND email = $2`,
		role, account.NormalizeEmail(email))
	return scanAccountRow(row)
}

func (r *AccountRepository) List(ctx context.Context, filter account.ListFilter) ([]account.Account, error) {
	var w where
	if filter.Role != "" {
		w.add("role = %s", filter.Role)
	}
	if filter.Approved != nil {
		w.add("approved = %s", *filter.Approved)
	}
	query := `SELECT ` + accountColumns + ` FROM accounts` + w.String() + ` ORDER BY created_at DESC, id` + w.page(filter.Limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, storeError("failed to list accounts", err)
	}
	defer rows.Close()
	items := []account.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, storeError("failed to scan account", err)
		}
		items = append(items, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list accounts", err)
	}
	return items, nil
}

func (r *AccountRepository) SetApproved(ctx context.Context, id common.UUID, approved bool) (*account.Account, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET approved = $1, updated_at = $2 WHERE id = $3 AND role = $4`,
		approved, time.Now().UTC(), id, account.RoleEmployer)
	if err != nil {
		return nil, storeError("failed to update account", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "employer not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id common.UUID, profile account.Profile) (*account.Account, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET name = $1, department = $2, year = $3, company_name = $4, contact_name = $5, updated_at = $6
		WHERE id = $7`,
		profile.Name, profile.Department, profile.Year, profile.CompanyName, profile.ContactName, time.Now().UTC(), id)
	if err != nil {
		return nil, storeError("failed to update profile", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "account not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func scanAccountRow(row *sql.Row) (*account.Account, error) {
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "account not found", err)
		}
		return nil, storeError("failed to load account", err)
	}
	return acc, nil
}

func scanAccount(row scanner) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.Role, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.Department, &acc.Year,
		&acc.CompanyName, &acc.ContactName, &acc.Approved, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	return &acc, nil
}
