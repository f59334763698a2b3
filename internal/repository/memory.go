package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuparking/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется без DATABASE_URI и в тестах.
// Единицы работы выполняются последовательно под одной блокировкой; при ошибке состояние
// восстанавливается из снимка.
type MemoryRepository struct {
	mu sync.RWMutex
	memoryState
}

type memoryState struct {
	users        map[int64]model.User
	accounts     map[int64]model.Account
	vehicles     map[int64]model.Vehicle
	lots         map[int64]model.ParkingLot
	reservations map[int64]model.Reservation
	sessions     map[int64]model.ParkingSession
	recharges    map[int64]model.Recharge
	ledger       []model.LedgerEntry
	seq          int64
}

// NewMemoryRepository создаёт пустое хранилище с переданными парковками.
func NewMemoryRepository(lots ...model.ParkingLot) *MemoryRepository {
	m := &MemoryRepository{memoryState: memoryState{
		users:        make(map[int64]model.User),
		accounts:     make(map[int64]model.Account),
		vehicles:     make(map[int64]model.Vehicle),
		lots:         make(map[int64]model.ParkingLot),
		reservations: make(map[int64]model.Reservation),
		sessions:     make(map[int64]model.ParkingSession),
		recharges:    make(map[int64]model.Recharge),
	}}
	for _, lot := range lots {
		if lot.ID == 0 {
			lot.ID = m.nextID()
		} else if lot.ID > m.seq {
			m.seq = lot.ID
		}
		m.lots[lot.ID] = lot
	}
	return m
}

// DemoLots возвращает набор парковок для запуска без базы данных.
func DemoLots() []model.ParkingLot {
	lot := func(name, address string, lat, lon float64, price string, spaces int) model.ParkingLot {
		return model.ParkingLot{
			Name:            name,
			Address:         address,
			Latitude:        lat,
			Longitude:       lon,
			PricePerHour:    decimal.RequireFromString(price),
			TotalSpaces:     spaces,
			AvailableSpaces: spaces,
			Active:          true,
		}
	}
	return []model.ParkingLot{
		lot("Parqueadero Centro", "Carrera 7 # 12-45, Bogotá", 4.5981, -74.0758, "4500.00", 40),
		lot("Parqueadero Zona T", "Calle 82 # 12-18, Bogotá", 4.6670, -74.0530, "6000.00", 25),
		lot("Parqueadero Usaquén", "Carrera 6 # 119-24, Bogotá", 4.6951, -74.0308, "3800.00", 30),
		lot("Parqueadero Chapinero", "Calle 57 # 9-30, Bogotá", 4.6410, -74.0630, "4000.00", 15),
	}
}

func (s *memoryState) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memoryState) snapshot() memoryState {
	return memoryState{
		users:        copyMap(s.users),
		accounts:     copyMap(s.accounts),
		vehicles:     copyMap(s.vehicles),
		lots:         copyMap(s.lots),
		reservations: copyMap(s.reservations),
		sessions:     copyMap(s.sessions),
		recharges:    copyMap(s.recharges),
		ledger:       append([]model.LedgerEntry(nil), s.ledger...),
		seq:          s.seq,
	}
}

func copyMap[V any](src map[int64]V) map[int64]V {
	dst := make(map[int64]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Close ничего не делает и нужен для совместимости с PostgresRepository.
func (m *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (m *MemoryRepository) Ping(context.Context) error { return nil }

// WithinUnitOfWork выполняет fn под эксклюзивной блокировкой хранилища.
func (m *MemoryRepository) WithinUnitOfWork(ctx context.Context, fn func(UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := m.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.memoryState = snap
			panic(p)
		}
	}()

	if err := fn(&memoryUnitOfWork{s: &m.memoryState}); err != nil {
		m.memoryState = snap
		return err
	}
	if err := ctx.Err(); err != nil {
		m.memoryState = snap
		return err
	}
	return nil
}

type memoryUnitOfWork struct {
	s *memoryState
}

func (u *memoryUnitOfWork) CreateUser(_ context.Context, user *model.User) error {
	for _, existing := range u.s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.DocumentID == user.DocumentID {
			return fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
	}
	now := time.Now()
	user.ID = u.s.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	u.s.users[user.ID] = *user
	return nil
}

func (u *memoryUnitOfWork) CreateAccount(_ context.Context, userID int64) (model.Account, error) {
	if _, ok := u.s.users[userID]; !ok {
		return model.Account{}, ErrUserNotFound
	}
	for _, acc := range u.s.accounts {
		if acc.UserID == userID {
			return model.Account{}, fmt.Errorf("account for user %d: %w", userID, ErrConflict)
		}
	}
	now := time.Now()
	acc := model.Account{ID: u.s.nextID(), UserID: userID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	u.s.accounts[acc.ID] = acc
	return acc, nil
}

func (u *memoryUnitOfWork) LockAccount(_ context.Context, userID int64) (model.Account, error) {
	for _, acc := range u.s.accounts {
		if acc.UserID == userID {
			return acc, nil
		}
	}
	return model.Account{}, ErrAccountNotFound
}

func (u *memoryUnitOfWork) ApplyDelta(_ context.Context, accountID int64, delta, expectedPrior decimal.Decimal) (decimal.Decimal, error) {
	acc, ok := u.s.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	if !acc.Balance.Equal(expectedPrior) {
		return decimal.Zero, fmt.Errorf("%w: account %d balance changed under lock", ErrInvariantViolation, accountID)
	}
	next, err := nextBalance(accountID, acc.Balance, delta)
	if err != nil {
		return decimal.Zero, err
	}
	acc.Balance = next
	acc.UpdatedAt = time.Now()
	u.s.accounts[accountID] = acc
	return next, nil
}

func (u *memoryUnitOfWork) AppendLedgerEntry(_ context.Context, e *model.LedgerEntry) error {
	if err := checkLedgerEntry(e); err != nil {
		return err
	}
	if _, ok := u.s.accounts[e.AccountID]; !ok {
		return ErrAccountNotFound
	}
	e.ID = u.s.nextID()
	e.CreatedAt = time.Now()
	u.s.ledger = append(u.s.ledger, *e)
	return nil
}

func (u *memoryUnitOfWork) GetActiveLot(_ context.Context, lotID int64) (model.ParkingLot, error) {
	lot, ok := u.s.lots[lotID]
	if !ok || !lot.Active {
		return model.ParkingLot{}, ErrLotNotFound
	}
	return lot, nil
}

func (u *memoryUnitOfWork) GetVehicle(_ context.Context, userID, vehicleID int64) (model.Vehicle, error) {
	v, ok := u.s.vehicles[vehicleID]
	if !ok || v.UserID != userID {
		return model.Vehicle{}, ErrVehicleNotFound
	}
	return v, nil
}

func (u *memoryUnitOfWork) ReserveOneSpace(_ context.Context, lotID int64) (int, error) {
	lot, ok := u.s.lots[lotID]
	if !ok || lot.AvailableSpaces <= 0 {
		return 0, ErrNoCapacity
	}
	lot.AvailableSpaces--
	u.s.lots[lotID] = lot
	return lot.AvailableSpaces, nil
}

func (u *memoryUnitOfWork) ReleaseOneSpace(_ context.Context, lotID int64) (bool, error) {
	lot, ok := u.s.lots[lotID]
	if !ok || lot.AvailableSpaces >= lot.TotalSpaces {
		return false, nil
	}
	lot.AvailableSpaces++
	u.s.lots[lotID] = lot
	return true, nil
}

func (u *memoryUnitOfWork) InsertReservation(_ context.Context, r *model.Reservation) error {
	r.ID = u.s.nextID()
	r.CreatedAt = time.Now()
	u.s.reservations[r.ID] = *r
	return nil
}

func (u *memoryUnitOfWork) InsertParkingSession(_ context.Context, s *model.ParkingSession) error {
	if _, ok := u.s.reservations[s.ReservationID]; !ok {
		return ErrReservationNotFound
	}
	s.ID = u.s.nextID()
	s.CreatedAt = time.Now()
	u.s.sessions[s.ID] = *s
	return nil
}

func (u *memoryUnitOfWork) LockActiveReservation(_ context.Context, userID, reservationID int64) (model.Reservation, error) {
	r, ok := u.s.reservations[reservationID]
	if !ok || r.UserID != userID || r.Status != model.ReservationStatusActive {
		return model.Reservation{}, ErrReservationNotFound
	}
	return r, nil
}

func (u *memoryUnitOfWork) CompleteReservation(_ context.Context, reservationID int64, endTime time.Time) error {
	r, ok := u.s.reservations[reservationID]
	if !ok || r.Status != model.ReservationStatusActive {
		return ErrReservationNotFound
	}
	r.Status = model.ReservationStatusCompleted
	r.EndTime.SetValid(endTime)
	u.s.reservations[reservationID] = r
	return nil
}

func (u *memoryUnitOfWork) InsertRecharge(_ context.Context, rc *model.Recharge) error {
	for _, existing := range u.s.recharges {
		if existing.Reference == rc.Reference {
			return fmt.Errorf("recharge reference %s: %w", rc.Reference, ErrConflict)
		}
	}
	rc.ID = u.s.nextID()
	rc.CreatedAt = time.Now()
	u.s.recharges[rc.ID] = *rc
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUserByID возвращает пользователя по идентификатору.
func (m *MemoryRepository) GetUserByID(_ context.Context, userID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// UpdateProfile обновляет непустые поля профиля.
func (m *MemoryRepository) UpdateProfile(_ context.Context, userID int64, upd ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if upd.Name != "" {
		u.Name = upd.Name
	}
	if upd.Phone != "" {
		u.Phone.SetValid(upd.Phone)
	}
	if upd.Address != "" {
		u.Address.SetValid(upd.Address)
	}
	u.UpdatedAt = time.Now()
	m.users[userID] = u
	return &u, nil
}

// GetAccountByUser возвращает счёт пользователя.
func (m *MemoryRepository) GetAccountByUser(_ context.Context, userID int64) (model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, acc := range m.accounts {
		if acc.UserID == userID {
			return acc, nil
		}
	}
	return model.Account{}, ErrAccountNotFound
}

// ListVehicles возвращает автомобили пользователя, начиная с последних добавленных.
func (m *MemoryRepository) ListVehicles(_ context.Context, userID int64) ([]model.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Vehicle
	for _, v := range m.vehicles {
		if v.UserID == userID {
			res = append(res, v)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// CreateVehicle добавляет автомобиль пользователю.
func (m *MemoryRepository) CreateVehicle(_ context.Context, v *model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.vehicles {
		if existing.UserID == v.UserID && existing.Plate == v.Plate {
			return fmt.Errorf("%w: %s", ErrVehicleExists, v.Plate)
		}
	}
	v.ID = m.nextID()
	v.CreatedAt = time.Now()
	m.vehicles[v.ID] = *v
	return nil
}

// DeleteVehicle удаляет автомобиль, если на него не оформлено ни одного бронирования.
func (m *MemoryRepository) DeleteVehicle(_ context.Context, userID, vehicleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vehicles[vehicleID]
	if !ok || v.UserID != userID {
		return ErrVehicleNotFound
	}
	for _, r := range m.reservations {
		if r.VehicleID == vehicleID {
			return ErrVehicleInUse
		}
	}
	delete(m.vehicles, vehicleID)
	return nil
}

// GetLot возвращает активную парковку.
func (m *MemoryRepository) GetLot(_ context.Context, lotID int64) (model.ParkingLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lot, ok := m.lots[lotID]
	if !ok || !lot.Active {
		return model.ParkingLot{}, ErrLotNotFound
	}
	return lot, nil
}

// ListActiveLots возвращает активные парковки по названию.
func (m *MemoryRepository) ListActiveLots(_ context.Context) ([]model.ParkingLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.ParkingLot
	for _, lot := range m.lots {
		if lot.Active {
			res = append(res, lot)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// ListReservations возвращает бронирования пользователя, начиная с самых новых.
func (m *MemoryRepository) ListReservations(_ context.Context, userID int64, status model.ReservationStatus) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Reservation
	for _, r := range m.reservations {
		if r.UserID != userID || (status != "" && r.Status != status) {
			continue
		}
		r.LotName = m.lots[r.LotID].Name
		r.VehiclePlate = m.vehicles[r.VehicleID].Plate
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ListOverdueReservations возвращает активные бронирования, время которых истекло к now.
func (m *MemoryRepository) ListOverdueReservations(_ context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Reservation
	for _, r := range m.reservations {
		if r.Status == model.ReservationStatusActive && !r.ExpiresAt().After(now) {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.Before(res[j].StartTime) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// ListLedgerEntries возвращает записи журнала по счёту, начиная с самых новых.
func (m *MemoryRepository) ListLedgerEntries(_ context.Context, accountID int64, kind model.LedgerKind, limit int) ([]model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = clampLimit(limit)
	var res []model.LedgerEntry
	for i := len(m.ledger) - 1; i >= 0 && len(res) < limit; i-- {
		e := m.ledger[i]
		if e.AccountID != accountID || (kind != "" && e.Kind != kind) {
			continue
		}
		if e.RechargeID.Valid {
			rc := m.recharges[e.RechargeID.Int64]
			e.PaymentMethod = rc.PaymentMethod
			e.RechargeState = rc.Status
		}
		res = append(res, e)
	}
	return res, nil
}
