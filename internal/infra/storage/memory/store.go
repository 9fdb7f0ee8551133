package memory

import (
	"context"
	"errors"
	"sync"

	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/settings"
	"resortops/internal/domain/shared/money"
)

// ErrReadOnly is returned when a read-only unit attempts a write.
var ErrReadOnly = errors.New("memory: write attempted in read-only unit")

// Store keeps every aggregate in process memory. Write units are serialized
// through writeMu and undone from a journal on rollback.
type Store struct {
	writeMu sync.Mutex

	mu           sync.RWMutex
	rooms        map[rooms.RoomID]*rooms.Room
	reservations map[reservations.ID]*reservations.Reservation
	nights       map[string]reservations.ID
	invoices     map[billing.InvoiceID]*billing.Invoice
	transactions map[billing.TransactionID]billing.Transaction
	receipts     map[billing.ReceiptID]billing.Receipt
	rates        map[string]money.Money
	settings     *settings.Settings
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[rooms.RoomID]*rooms.Room),
		reservations: make(map[reservations.ID]*reservations.Reservation),
		nights:       make(map[string]reservations.ID),
		invoices:     make(map[billing.InvoiceID]*billing.Invoice),
		transactions: make(map[billing.TransactionID]billing.Transaction),
		receipts:     make(map[billing.ReceiptID]billing.Receipt),
		rates:        make(map[string]money.Money),
	}
}

// PutRoom seeds or replaces a room outside any unit of work.
func (s *Store) PutRoom(room *rooms.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
}

// PutRate seeds the nightly price of roomType under rate.
func (s *Store) PutRate(roomType, rate string, nightly money.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[rateKey(roomType, rate)] = nightly
}

// Room returns a copy of the stored room, for inspection.
func (s *Store) Room(id rooms.RoomID) (*rooms.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room.Clone(), ok
}

// SettingsRepository reads and writes the settings document without a unit.
func (s *Store) SettingsRepository() settings.Repository {
	return settingsRepo{store: s}
}

func rateKey(roomType, rate string) string {
	return roomType + "/" + rate
}

type settingsRepo struct {
	store *Store
	unit  *Unit
}

func (r settingsRepo) Load(context.Context) (settings.Settings, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.settings == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return cloneSettings(*r.store.settings), nil
}

func (r settingsRepo) Save(_ context.Context, next settings.Settings) error {
	if r.unit != nil {
		return r.unit.write(func(s *Store) func() {
			prev := s.settings
			copied := cloneSettings(next)
			s.settings = &copied
			return func() { s.settings = prev }
		})
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := cloneSettings(next)
	r.store.settings = &copied
	return nil
}

func cloneSettings(s settings.Settings) settings.Settings {
	s.Taxes = append([]settings.Tax(nil), s.Taxes...)
	return s
}
