package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/model"
)

const userColumns = `id, document_id, email, name, phone, address, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.DocumentID, &u.Email, &u.Name, &u.Phone, &u.Address, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser создаёт нового пользователя.
func (u *pgUnitOfWork) CreateUser(ctx context.Context, user *model.User) error {
	err := u.tx.QueryRow(ctx,
		`INSERT INTO users (document_id, email, name, phone, address, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		user.DocumentID, user.Email, user.Name, user.Phone, user.Address, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateAccount создаёт счёт пользователя с нулевым балансом.
func (u *pgUnitOfWork) CreateAccount(ctx context.Context, userID int64) (model.Account, error) {
	acc := model.Account{UserID: userID}
	var balance string
	err := u.tx.QueryRow(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES ($1, 0)
		 RETURNING id, balance::text, created_at, updated_at`,
		userID,
	).Scan(&acc.ID, &balance, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, fmt.Errorf("account for user %d: %w", userID, ErrConflict)
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	if acc.Balance, err = parseMoney(balance); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateProfile обновляет имя, телефон и адрес пользователя.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     phone = COALESCE($3, phone),
		     address = COALESCE($4, address),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID,
		null.NewString(upd.Name, upd.Name != ""),
		null.NewString(upd.Phone, upd.Phone != ""),
		null.NewString(upd.Address, upd.Address != ""),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// GetAccountByUser возвращает счёт пользователя без блокировки.
func (r *PostgresRepository) GetAccountByUser(ctx context.Context, userID int64) (model.Account, error) {
	var (
		acc     model.Account
		balance string
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, balance::text, created_at, updated_at FROM accounts WHERE user_id = $1`,
			userID,
		).Scan(&acc.ID, &acc.UserID, &balance, &acc.CreatedAt, &acc.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	if acc.Balance, err = parseMoney(balance); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}
