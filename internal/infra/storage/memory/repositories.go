package memory

import (
	"context"
	"sort"
	"time"

	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/money"
)

type roomRepo struct {
	u *Unit
}

func (r roomRepo) ByID(_ context.Context, id rooms.RoomID) (*rooms.Room, error) {
	var room *rooms.Room
	r.u.read(func(s *Store) { room = s.rooms[id].Clone() })
	if room == nil {
		return nil, rooms.ErrNotFound
	}
	return room, nil
}

func (r roomRepo) ByIDs(_ context.Context, ids []rooms.RoomID) ([]*rooms.Room, error) {
	out := make([]*rooms.Room, 0, len(ids))
	r.u.read(func(s *Store) {
		for _, id := range ids {
			if room, ok := s.rooms[id]; ok {
				out = append(out, room.Clone())
			}
		}
	})
	return out, nil
}

func (r roomRepo) List(_ context.Context) ([]*rooms.Room, error) {
	var out []*rooms.Room
	r.u.read(func(s *Store) {
		for _, room := range s.rooms {
			out = append(out, room.Clone())
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r roomRepo) ExpiredLocks(_ context.Context, now time.Time) ([]*rooms.Room, error) {
	var out []*rooms.Room
	r.u.read(func(s *Store) {
		for _, room := range s.rooms {
			if room.IsLockExpired(now) {
				out = append(out, room.Clone())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r roomRepo) Save(_ context.Context, room *rooms.Room) error {
	return r.u.writeErr(func(s *Store) (func(), error) {
		prev, exists := s.rooms[room.ID]
		if exists && prev.Version != room.Version {
			return nil, uow.ErrConcurrentUpdate
		}
		stored := room.Clone()
		stored.Version = room.Version + 1
		s.rooms[room.ID] = stored
		room.Version = stored.Version
		return func() {
			if exists {
				s.rooms[room.ID] = prev
			} else {
				delete(s.rooms, room.ID)
			}
		}, nil
	})
}

type reservationRepo struct {
	u *Unit
}

func (r reservationRepo) ByID(_ context.Context, id reservations.ID) (*reservations.Reservation, error) {
	var res *reservations.Reservation
	r.u.read(func(s *Store) { res = s.reservations[id].Clone() })
	if res == nil {
		return nil, reservations.ErrNotFound
	}
	return res, nil
}

func (r reservationRepo) ReferenceExists(_ context.Context, reference string) (bool, error) {
	found := false
	r.u.read(func(s *Store) {
		for _, res := range s.reservations {
			if res.Reference == reference {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r reservationRepo) Save(_ context.Context, res *reservations.Reservation) error {
	return r.u.writeErr(func(s *Store) (func(), error) {
		prev, exists := s.reservations[res.ID]
		if exists && prev.Version != res.Version {
			return nil, uow.ErrConcurrentUpdate
		}
		if !exists && res.Version != 0 {
			return nil, uow.ErrConcurrentUpdate
		}
		for id, other := range s.reservations {
			if id != res.ID && other.Reference == res.Reference {
				return nil, reservations.ErrReferenceTaken
			}
		}
		stored := res.Clone()
		stored.Version = res.Version + 1
		s.reservations[res.ID] = stored
		res.Version = stored.Version
		return func() {
			if exists {
				s.reservations[res.ID] = prev
			} else {
				delete(s.reservations, res.ID)
			}
		}, nil
	})
}

func (r reservationRepo) Delete(_ context.Context, id reservations.ID) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.reservations[id]
		if !exists {
			return nil
		}
		delete(s.reservations, id)
		return func() { s.reservations[id] = prev }
	})
}

func (r reservationRepo) HoldingRooms(_ context.Context, roomIDs []rooms.RoomID, statuses []reservations.Status) ([]*reservations.Reservation, error) {
	wanted := make(map[rooms.RoomID]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		wanted[id] = struct{}{}
	}
	var out []*reservations.Reservation
	r.u.read(func(s *Store) {
		for _, res := range s.reservations {
			if !hasStatus(res.Status, statuses) {
				continue
			}
			for _, id := range res.RoomIDs() {
				if _, ok := wanted[id]; ok {
					out = append(out, res.Clone())
					break
				}
			}
		}
	})
	sortReservations(out)
	return out, nil
}

func (r reservationRepo) DueForCompletion(_ context.Context, now time.Time) ([]*reservations.Reservation, error) {
	due := []reservations.Status{reservations.StatusConfirmed, reservations.StatusCheckedIn}
	var out []*reservations.Reservation
	r.u.read(func(s *Store) {
		for _, res := range s.reservations {
			if hasStatus(res.Status, due) && !res.Range.CheckIn.After(now) {
				out = append(out, res.Clone())
			}
		}
	})
	sortReservations(out)
	return out, nil
}

func (r reservationRepo) List(_ context.Context, filter reservations.Filter) ([]*reservations.Reservation, error) {
	var out []*reservations.Reservation
	r.u.read(func(s *Store) {
		for _, res := range s.reservations {
			if len(filter.Statuses) > 0 && !hasStatus(res.Status, filter.Statuses) {
				continue
			}
			if !filter.To.IsZero() && !res.Range.CheckIn.Before(filter.To) {
				continue
			}
			if !filter.From.IsZero() && !res.Range.CheckOut.After(filter.From) {
				continue
			}
			out = append(out, res.Clone())
		}
	})
	sortReservations(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func hasStatus(status reservations.Status, statuses []reservations.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortReservations(list []*reservations.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Range.CheckIn.Equal(list[j].Range.CheckIn) {
			return list[i].Range.CheckIn.Before(list[j].Range.CheckIn)
		}
		return list[i].ID < list[j].ID
	})
}

type ledger struct {
	u *Unit
}

func (l ledger) Claim(_ context.Context, id reservations.ID, stays []reservations.RoomStay) error {
	nights := reservations.NightsOf(stays)
	return l.u.writeErr(func(s *Store) (func(), error) {
		for _, n := range nights {
			if holder, ok := s.nights[n.Key()]; ok && holder != id {
				return nil, &reservations.TakenError{Night: n, Holder: holder}
			}
		}
		var added []string
		for _, n := range nights {
			key := n.Key()
			if _, ok := s.nights[key]; ok {
				continue
			}
			s.nights[key] = id
			added = append(added, key)
		}
		return func() {
			for _, key := range added {
				delete(s.nights, key)
			}
		}, nil
	})
}

func (l ledger) Retain(_ context.Context, id reservations.ID, stays []reservations.RoomStay) error {
	keep := make(map[string]struct{})
	for _, n := range reservations.NightsOf(stays) {
		keep[n.Key()] = struct{}{}
	}
	return l.u.write(func(s *Store) func() {
		return dropNights(s, id, func(key string) bool {
			_, ok := keep[key]
			return !ok
		})
	})
}

func (l ledger) Release(_ context.Context, id reservations.ID) error {
	return l.u.write(func(s *Store) func() {
		return dropNights(s, id, func(string) bool { return true })
	})
}

func dropNights(s *Store, id reservations.ID, drop func(key string) bool) func() {
	var removed []string
	for key, holder := range s.nights {
		if holder == id && drop(key) {
			delete(s.nights, key)
			removed = append(removed, key)
		}
	}
	return func() {
		for _, key := range removed {
			s.nights[key] = id
		}
	}
}

type invoiceRepo struct {
	u *Unit
}

func (r invoiceRepo) ByID(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	var inv *billing.Invoice
	r.u.read(func(s *Store) { inv = s.invoices[id].Clone() })
	if inv == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

func (r invoiceRepo) ByReservation(_ context.Context, id reservations.ID) (*billing.Invoice, error) {
	var inv *billing.Invoice
	r.u.read(func(s *Store) {
		for _, candidate := range s.invoices {
			if candidate.Reservation == id {
				inv = candidate.Clone()
				return
			}
		}
	})
	if inv == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

func (r invoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	return r.u.writeErr(func(s *Store) (func(), error) {
		prev, exists := s.invoices[inv.ID]
		if exists && prev.Version != inv.Version {
			return nil, uow.ErrConcurrentUpdate
		}
		for id, other := range s.invoices {
			if id != inv.ID && other.Reservation == inv.Reservation {
				return nil, uow.ErrConcurrentUpdate
			}
		}
		stored := inv.Clone()
		stored.Version = inv.Version + 1
		s.invoices[inv.ID] = stored
		inv.Version = stored.Version
		return func() {
			if exists {
				s.invoices[inv.ID] = prev
			} else {
				delete(s.invoices, inv.ID)
			}
		}, nil
	})
}

func (r invoiceRepo) Delete(_ context.Context, id billing.InvoiceID) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.invoices[id]
		if !exists {
			return nil
		}
		delete(s.invoices, id)
		return func() { s.invoices[id] = prev }
	})
}

type transactionRepo struct {
	u *Unit
}

func (r transactionRepo) Save(_ context.Context, tx *billing.Transaction) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.transactions[tx.ID]
		s.transactions[tx.ID] = *tx
		return func() {
			if exists {
				s.transactions[tx.ID] = prev
			} else {
				delete(s.transactions, tx.ID)
			}
		}
	})
}

func (r transactionRepo) HasSuccessful(_ context.Context, match billing.Match) (bool, error) {
	found := false
	r.u.read(func(s *Store) {
		for _, tx := range s.transactions {
			if tx.Matches(match) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r transactionRepo) ListByReservation(_ context.Context, id reservations.ID) ([]*billing.Transaction, error) {
	var out []*billing.Transaction
	r.u.read(func(s *Store) {
		for _, tx := range s.transactions {
			if tx.Reservation == id {
				copied := tx
				out = append(out, &copied)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r transactionRepo) Delete(_ context.Context, id billing.TransactionID) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.transactions[id]
		if !exists {
			return nil
		}
		delete(s.transactions, id)
		return func() { s.transactions[id] = prev }
	})
}

type receiptRepo struct {
	u *Unit
}

func (r receiptRepo) Save(_ context.Context, receipt *billing.Receipt) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.receipts[receipt.ID]
		s.receipts[receipt.ID] = *receipt
		return func() {
			if exists {
				s.receipts[receipt.ID] = prev
			} else {
				delete(s.receipts, receipt.ID)
			}
		}
	})
}

func (r receiptRepo) ListByReservation(_ context.Context, id reservations.ID) ([]*billing.Receipt, error) {
	var out []*billing.Receipt
	r.u.read(func(s *Store) {
		for _, receipt := range s.receipts {
			if receipt.Reservation == id {
				copied := receipt
				out = append(out, &copied)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (r receiptRepo) Delete(_ context.Context, id billing.ReceiptID) error {
	return r.u.write(func(s *Store) func() {
		prev, exists := s.receipts[id]
		if !exists {
			return nil
		}
		delete(s.receipts, id)
		return func() { s.receipts[id] = prev }
	})
}

type rateCard struct {
	store *Store
}

func (c rateCard) NightlyRate(_ context.Context, roomType, rate string) (money.Money, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	nightly, ok := c.store.rates[rateKey(roomType, rate)]
	if !ok {
		return money.Money{}, billing.ErrRateNotFound
	}
	return nightly, nil
}
