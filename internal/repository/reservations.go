package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/tuparking/internal/model"
)

// InsertReservation сохраняет новое бронирование.
func (u *pgUnitOfWork) InsertReservation(ctx context.Context, r *model.Reservation) error {
	err := u.tx.QueryRow(ctx,
		`INSERT INTO reservations (user_id, vehicle_id, lot_id, start_time, duration_hours, total_cost, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		r.UserID, r.VehicleID, r.LotID, r.StartTime, r.DurationHours, r.TotalCost.String(), string(r.Status),
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// InsertParkingSession сохраняет запись парковочной сессии для бронирования.
func (u *pgUnitOfWork) InsertParkingSession(ctx context.Context, s *model.ParkingSession) error {
	err := u.tx.QueryRow(ctx,
		`INSERT INTO parking_sessions (reservation_id, vehicle_id, cost, duration_minutes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.ReservationID, s.VehicleID, s.Cost.String(), s.DurationMinutes,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert parking session: %w", err)
	}
	return nil
}

// LockActiveReservation читает активное бронирование пользователя с блокировкой строки.
func (u *pgUnitOfWork) LockActiveReservation(ctx context.Context, userID, reservationID int64) (model.Reservation, error) {
	var (
		res    model.Reservation
		cost   string
		status string
	)
	err := u.tx.QueryRow(ctx,
		`SELECT id, user_id, vehicle_id, lot_id, start_time, duration_hours, total_cost::text, status::text
		 FROM reservations
		 WHERE id = $1 AND user_id = $2 AND status = 'active'
		 FOR UPDATE`,
		reservationID, userID,
	).Scan(&res.ID, &res.UserID, &res.VehicleID, &res.LotID, &res.StartTime, &res.DurationHours, &cost, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, ErrReservationNotFound
		}
		return model.Reservation{}, fmt.Errorf("lock reservation: %w", err)
	}
	res.Status = model.ReservationStatus(status)
	if res.TotalCost, err = parseMoney(cost); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// CompleteReservation переводит активное бронирование в статус completed.
func (u *pgUnitOfWork) CompleteReservation(ctx context.Context, reservationID int64, endTime time.Time) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE reservations SET status = 'completed', end_time = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'active'`,
		reservationID, endTime,
	)
	if err != nil {
		return fmt.Errorf("complete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// ListReservations возвращает бронирования пользователя, начиная с самых новых.
// Пустой status означает отсутствие фильтра.
func (r *PostgresRepository) ListReservations(ctx context.Context, userID int64, status model.ReservationStatus) ([]model.Reservation, error) {
	var res []model.Reservation

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT r.id, r.user_id, r.vehicle_id, r.lot_id, r.start_time, r.duration_hours, r.total_cost::text,
			        r.status::text, r.end_time, r.created_at, p.name, v.plate
			 FROM reservations r
			 JOIN parking_lots p ON p.id = r.lot_id
			 JOIN vehicles v ON v.id = r.vehicle_id
			 WHERE r.user_id = $1 AND ($2::text = '' OR r.status::text = $2::text)
			 ORDER BY r.created_at DESC, r.id DESC`,
			userID, string(status),
		)
		if err != nil {
			return fmt.Errorf("select reservations: %w", err)
		}
		defer rows.Close()

		res, err = scanReservations(rows, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// ListOverdueReservations возвращает активные бронирования, оплаченное время которых истекло к now.
func (r *PostgresRepository) ListOverdueReservations(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, vehicle_id, lot_id, start_time, duration_hours, total_cost::text,
		        status::text, end_time, created_at
		 FROM reservations
		 WHERE status = 'active' AND start_time + make_interval(hours => duration_hours) <= $1
		 ORDER BY start_time
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select overdue reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows, false)
}

func scanReservations(rows pgx.Rows, joined bool) ([]model.Reservation, error) {
	var res []model.Reservation
	for rows.Next() {
		var (
			rsv          model.Reservation
			cost, status string
		)
		dest := []any{&rsv.ID, &rsv.UserID, &rsv.VehicleID, &rsv.LotID, &rsv.StartTime, &rsv.DurationHours,
			&cost, &status, &rsv.EndTime, &rsv.CreatedAt}
		if joined {
			dest = append(dest, &rsv.LotName, &rsv.VehiclePlate)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}

		rsv.Status = model.ReservationStatus(status)
		var err error
		if rsv.TotalCost, err = parseMoney(cost); err != nil {
			return nil, err
		}
		res = append(res, rsv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
