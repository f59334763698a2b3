package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/tuparking/internal/model"
)

// GetVehicle возвращает автомобиль, принадлежащий пользователю.
func (u *pgUnitOfWork) GetVehicle(ctx context.Context, userID, vehicleID int64) (model.Vehicle, error) {
	var v model.Vehicle
	err := u.tx.QueryRow(ctx,
		`SELECT id, user_id, plate, make, color, created_at FROM vehicles WHERE id = $1 AND user_id = $2`,
		vehicleID, userID,
	).Scan(&v.ID, &v.UserID, &v.Plate, &v.Make, &v.Color, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vehicle{}, ErrVehicleNotFound
		}
		return model.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

// ListVehicles возвращает автомобили пользователя, начиная с последних добавленных.
func (r *PostgresRepository) ListVehicles(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	var res []model.Vehicle

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, plate, make, color, created_at
			 FROM vehicles
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("select vehicles: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var v model.Vehicle
			if err := rows.Scan(&v.ID, &v.UserID, &v.Plate, &v.Make, &v.Color, &v.CreatedAt); err != nil {
				return fmt.Errorf("scan vehicle: %w", err)
			}
			res = append(res, v)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// CreateVehicle добавляет автомобиль пользователю.
func (r *PostgresRepository) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vehicles (user_id, plate, make, color) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		v.UserID, v.Plate, v.Make, v.Color,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrVehicleExists, v.Plate)
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

// DeleteVehicle удаляет автомобиль пользователя.
func (r *PostgresRepository) DeleteVehicle(ctx context.Context, userID, vehicleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM vehicles WHERE id = $1 AND user_id = $2`,
		vehicleID, userID,
	)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.ForeignKeyViolation {
			return ErrVehicleInUse
		}
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}
