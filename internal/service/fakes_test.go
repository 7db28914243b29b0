package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ticketgate/ticketgate/internal/model"
)

// fakeStore is an in-memory implementation of every repository interface the
// services consume. WithTx serializes callers with a mutex and restores a
// snapshot on error, mirroring the lock-and-rollback behavior of the real
// Postgres transaction. Individual methods do not lock: everything that
// mutates runs inside WithTx.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]*model.Event
	bookings map[string]*model.Booking
	users    map[string]*model.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]*model.Event),
		bookings: make(map[string]*model.Booking),
		users:    make(map[string]*model.User),
	}
}

func (f *fakeStore) addEvent(e model.Event) {
	f.events[e.ID] = &e
}

func (f *fakeStore) addUser(u model.User) {
	f.users[u.ID] = &u
}

func (f *fakeStore) addBooking(b model.Booking) {
	f.bookings[b.ID] = &b
}

func (f *fakeStore) snapshot() (map[string]*model.Event, map[string]*model.Booking) {
	events := make(map[string]*model.Event, len(f.events))
	for id, e := range f.events {
		copied := *e
		events[id] = &copied
	}
	bookings := make(map[string]*model.Booking, len(f.bookings))
	for id, b := range f.bookings {
		copied := *b
		bookings[id] = &copied
	}
	return events, bookings
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	events, bookings := f.snapshot()
	if err := fn(ctx); err != nil {
		f.events = events
		f.bookings = bookings
		return err
	}
	return nil
}

// --- SeatStore / EventLookup ---

func (f *fakeStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStore) DecrementSeats(ctx context.Context, id string) error {
	e, ok := f.events[id]
	if !ok || e.Seats <= 0 {
		return model.ErrNoSeats
	}
	e.Seats--
	return nil
}

func (f *fakeStore) IncrementSeats(ctx context.Context, id string, delta int) error {
	if e, ok := f.events[id]; ok {
		e.Seats += delta
	}
	return nil
}

// --- BookingStore ---

func (f *fakeStore) Create(ctx context.Context, b model.Booking) error {
	f.bookings[b.ID] = &b
	return nil
}

func (f *fakeStore) GetBooking(id string) *model.Booking {
	return f.bookings[id]
}

func (f *fakeStore) GetByIDBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) FindActiveByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.UserID == userID && b.EventID == eventID && b.Status != model.StatusCancelled {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindActiveByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.EventID == eventID && (b.Email == email || b.Contact == contact) && b.Status != model.StatusCancelled {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByEventAndContact(ctx context.Context, eventID, email, contact string) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.EventID == eventID && (b.Email == email || b.Contact == contact) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MarkCancelled(ctx context.Context, id string) error {
	b, ok := f.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	if b.Status == model.StatusCancelled {
		return model.ErrAlreadyCancelled
	}
	b.Status = model.StatusCancelled
	return nil
}

func (f *fakeStore) ListForUser(ctx context.Context, userID string) ([]model.BookingWithEvent, error) {
	var out []model.BookingWithEvent
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, f.joined(*b))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (f *fakeStore) ListForOrganizer(ctx context.Context, organizerID string) ([]model.BookingWithEvent, error) {
	var out []model.BookingWithEvent
	for _, b := range f.bookings {
		owned := false
		if e, ok := f.events[b.EventID]; ok && e.OrganizerID == organizerID {
			owned = true
		}
		if b.UserID == organizerID || owned {
			out = append(out, f.joined(*b))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (f *fakeStore) joined(b model.Booking) model.BookingWithEvent {
	item := model.BookingWithEvent{Booking: b}
	if e, ok := f.events[b.EventID]; ok {
		copied := *e
		item.Event = &copied
	}
	return item
}

func sortByCreated(items []model.BookingWithEvent) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (f *fakeStore) ListAll(ctx context.Context) ([]model.AdminBookingRow, error) {
	var out []model.AdminBookingRow
	for _, b := range f.bookings {
		row := model.AdminBookingRow{Booking: *b, EventName: "Unknown Event", UserName: b.Name}
		if e, ok := f.events[b.EventID]; ok {
			row.EventName = e.Title
			date := e.Date
			row.EventDate = &date
		}
		if u, ok := f.users[b.UserID]; ok {
			row.UserName = u.Name
			row.UserEmail = u.Email
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- AccountLookup ---

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// --- TicketLookup ---

func (f *fakeStore) GetByTicketID(ctx context.Context, ticketID string) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.TicketID == ticketID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, model.ErrBookingNotFound
}

func (f *fakeStore) MarkAttended(ctx context.Context, ticketID string, at time.Time) error {
	for _, b := range f.bookings {
		if b.TicketID == ticketID && !b.Attended {
			b.Attended = true
			t := at
			b.VerifiedAt = &t
		}
	}
	return nil
}

// bookingStoreAdapter satisfies BookingStore, whose GetByID collides with the
// event-side GetByID on fakeStore.
type bookingStoreAdapter struct {
	*fakeStore
}

func (a bookingStoreAdapter) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return a.fakeStore.GetByIDBooking(ctx, id)
}
