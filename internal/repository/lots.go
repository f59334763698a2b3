package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/tuparking/internal/model"
)

const lotColumns = `id, name, address, latitude, longitude, phone, opening_time, closing_time,
	price_per_hour::text, total_spaces, available_spaces, description, image_url, active`

func scanLot(row pgx.Row) (model.ParkingLot, error) {
	var (
		lot   model.ParkingLot
		price string
	)
	err := row.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.Latitude, &lot.Longitude, &lot.Phone,
		&lot.OpeningTime, &lot.ClosingTime, &price, &lot.TotalSpaces, &lot.AvailableSpaces,
		&lot.Description, &lot.ImageURL, &lot.Active)
	if err != nil {
		return model.ParkingLot{}, err
	}
	if lot.PricePerHour, err = parseMoney(price); err != nil {
		return model.ParkingLot{}, err
	}
	return lot, nil
}

func getActiveLot(ctx context.Context, q querier, lotID int64) (model.ParkingLot, error) {
	lot, err := scanLot(q.QueryRow(ctx,
		`SELECT `+lotColumns+` FROM parking_lots WHERE id = $1 AND active = true`,
		lotID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ParkingLot{}, ErrLotNotFound
		}
		return model.ParkingLot{}, fmt.Errorf("get parking lot: %w", err)
	}
	return lot, nil
}

// GetActiveLot читает активную парковку внутри транзакции.
func (u *pgUnitOfWork) GetActiveLot(ctx context.Context, lotID int64) (model.ParkingLot, error) {
	return getActiveLot(ctx, u.tx, lotID)
}

// ReserveOneSpace занимает одно место одним условным обновлением.
func (u *pgUnitOfWork) ReserveOneSpace(ctx context.Context, lotID int64) (int, error) {
	var available int
	err := u.tx.QueryRow(ctx,
		`UPDATE parking_lots
		 SET available_spaces = available_spaces - 1
		 WHERE id = $1 AND available_spaces > 0
		 RETURNING available_spaces`,
		lotID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoCapacity
		}
		return 0, fmt.Errorf("reserve space: %w", err)
	}
	return available, nil
}

// ReleaseOneSpace освобождает одно место, не превышая общую вместимость парковки.
func (u *pgUnitOfWork) ReleaseOneSpace(ctx context.Context, lotID int64) (bool, error) {
	tag, err := u.tx.Exec(ctx,
		`UPDATE parking_lots
		 SET available_spaces = available_spaces + 1
		 WHERE id = $1 AND available_spaces < total_spaces`,
		lotID,
	)
	if err != nil {
		return false, fmt.Errorf("release space: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetLot возвращает активную парковку по идентификатору.
func (r *PostgresRepository) GetLot(ctx context.Context, lotID int64) (model.ParkingLot, error) {
	var lot model.ParkingLot
	err := r.withRetry(ctx, func() error {
		var err error
		lot, err = getActiveLot(ctx, r.pool, lotID)
		return err
	})
	if err != nil {
		return model.ParkingLot{}, err
	}
	return lot, nil
}

// ListActiveLots возвращает активные парковки, упорядоченные по названию.
func (r *PostgresRepository) ListActiveLots(ctx context.Context) ([]model.ParkingLot, error) {
	var lots []model.ParkingLot

	err := r.withRetry(ctx, func() error {
		lots = lots[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT `+lotColumns+` FROM parking_lots WHERE active = true ORDER BY name ASC`,
		)
		if err != nil {
			return fmt.Errorf("select parking lots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			lot, err := scanLot(rows)
			if err != nil {
				return fmt.Errorf("scan parking lot: %w", err)
			}
			lots = append(lots, lot)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lots, nil
}
