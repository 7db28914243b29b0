package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/clock"
	"github.com/ticketgate/ticketgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newBookingService(store *fakeStore) *BookingService {
	return NewBookingService(bookingStoreAdapter{store}, store, store, clock.NewFixed(testNow), zap.NewNop())
}

func seedEvent(store *fakeStore, id string, seats int, organizerID string) {
	store.addEvent(model.Event{
		ID:          id,
		Title:       "Go Conference",
		Date:        testNow.Add(72 * time.Hour),
		Location:    "Hall A",
		Seats:       seats,
		OrganizerID: organizerID,
		CreatedAt:   testNow,
	})
}

func registerReq(eventID, name, email, contact string) model.RegisterRequest {
	return model.RegisterRequest{EventID: eventID, Name: name, Email: email, Contact: contact}
}

var user = auth.Identity{UserID: "user-1", Role: model.RoleUser}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		booking, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)

		assert.Equal(t, "user-1", booking.UserID)
		assert.Equal(t, "ev-1", booking.EventID)
		assert.Equal(t, model.StatusBooked, booking.Status)
		assert.False(t, booking.Attended)
		assert.Equal(t, testNow, booking.CreatedAt)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{12}$`), booking.TicketID)

		event, err := store.GetByID(ctx, "ev-1")
		require.NoError(t, err)
		assert.Equal(t, 4, event.Seats)
	})

	t.Run("missing fields fail validation without side effects", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "", "alice@example.com", "111"))
		require.Error(t, err)
		assert.True(t, model.IsValidation(err))

		event, _ := store.GetByID(ctx, "ev-1")
		assert.Equal(t, 5, event.Seats)
	})

	t.Run("invalid email fails validation", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "not-an-email", "111"))
		assert.True(t, model.IsValidation(err))
	})

	t.Run("unknown event", func(t *testing.T) {
		svc := newBookingService(newFakeStore())

		_, err := svc.CreateBooking(ctx, user, registerReq("missing", "Alice", "alice@example.com", "111"))
		assert.ErrorIs(t, err, model.ErrEventNotFound)
	})

	t.Run("requester already registered", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)

		_, err = svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "other@example.com", "222"))
		assert.ErrorIs(t, err, model.ErrAlreadyRegistered)

		event, _ := store.GetByID(ctx, "ev-1")
		assert.Equal(t, 4, event.Seats)
	})

	t.Run("email taken by another attendee", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)

		other := auth.Identity{UserID: "user-2", Role: model.RoleUser}
		_, err = svc.CreateBooking(ctx, other, registerReq("ev-1", "Bob", "alice@example.com", "222"))
		assert.ErrorIs(t, err, model.ErrContactTaken)
	})

	t.Run("contact taken by another attendee", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)

		other := auth.Identity{UserID: "user-2", Role: model.RoleUser}
		_, err = svc.CreateBooking(ctx, other, registerReq("ev-1", "Bob", "bob@example.com", "111"))
		assert.ErrorIs(t, err, model.ErrContactTaken)
	})

	t.Run("same email may register for a different event", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 5, "org-1")
		seedEvent(store, "ev-2", 5, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)
		_, err = svc.CreateBooking(ctx, user, registerReq("ev-2", "Alice", "alice@example.com", "111"))
		require.NoError(t, err)
	})

	t.Run("no seats left", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 0, "org-1")
		svc := newBookingService(store)

		_, err := svc.CreateBooking(ctx, user, registerReq("ev-1", "Alice", "alice@example.com", "111"))
		assert.ErrorIs(t, err, model.ErrNoSeats)
	})
}

// Racing bookings for a nearly-full event must never oversell: with N seats
// and more than N concurrent attempts, exactly N succeed and the rest get
// ErrNoSeats.
func TestCreateBooking_ConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	const seats = 3
	const attempts = 10

	store := newFakeStore()
	seedEvent(store, "ev-1", seats, "org-1")
	svc := newBookingService(store)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			requester := auth.Identity{UserID: "user-" + string(rune('a'+i)), Role: model.RoleUser}
			req := registerReq("ev-1",
				"Attendee",
				"attendee-"+string(rune('a'+i))+"@example.com",
				"contact-"+string(rune('a'+i)),
			)
			_, errs[i] = svc.CreateBooking(ctx, requester, req)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == model.ErrNoSeats:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, seats, succeeded)
	assert.Equal(t, attempts-seats, conflicted)

	event, _ := store.GetByID(ctx, "ev-1")
	assert.Equal(t, 0, event.Seats)
	assert.Len(t, store.bookings, seats)
}

// Full lifecycle: book the last seat, get refused, free it by cancelling,
// then book it again.
func TestBookingLifecycle_LastSeat(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedEvent(store, "ev-1", 1, "org-1")
	svc := newBookingService(store)

	userA := auth.Identity{UserID: "user-a", Role: model.RoleUser}
	userB := auth.Identity{UserID: "user-b", Role: model.RoleUser}

	bookingA, err := svc.CreateBooking(ctx, userA, registerReq("ev-1", "Ann", "ann@example.com", "111"))
	require.NoError(t, err)
	event, _ := store.GetByID(ctx, "ev-1")
	assert.Equal(t, 0, event.Seats)

	_, err = svc.CreateBooking(ctx, userB, registerReq("ev-1", "Ben", "ben@example.com", "222"))
	assert.ErrorIs(t, err, model.ErrNoSeats)

	require.NoError(t, svc.CancelBooking(ctx, userA, bookingA.ID))
	event, _ = store.GetByID(ctx, "ev-1")
	assert.Equal(t, 1, event.Seats)
	assert.Equal(t, model.StatusCancelled, store.GetBooking(bookingA.ID).Status)

	_, err = svc.CreateBooking(ctx, userB, registerReq("ev-1", "Ben", "ben@example.com", "222"))
	require.NoError(t, err)
	event, _ = store.GetByID(ctx, "ev-1")
	assert.Equal(t, 0, event.Seats)
}

func TestAddAttendee(t *testing.T) {
	ctx := context.Background()
	organizer := auth.Identity{UserID: "org-1", Role: model.RoleOrganizer}
	admin := auth.Identity{UserID: "admin-1", Role: model.RoleAdmin}

	t.Run("guest booking when no account matches", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-1")
		svc := newBookingService(store)

		booking, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Guest", "x@example.com", "555"))
		require.NoError(t, err)
		assert.Empty(t, booking.UserID)

		event, _ := store.GetByID(ctx, "ev-1")
		assert.Equal(t, 1, event.Seats)
	})

	t.Run("links an existing account by email", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-1")
		store.addUser(model.User{ID: "user-9", Name: "Zoe", Email: "zoe@example.com", Role: model.RoleUser})
		svc := newBookingService(store)

		booking, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Zoe", "zoe@example.com", "777"))
		require.NoError(t, err)
		assert.Equal(t, "user-9", booking.UserID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-1")
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Guest", "x@example.com", "555"))
		require.NoError(t, err)

		_, err = svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Other", "x@example.com", "556"))
		assert.ErrorIs(t, err, model.ErrAttendeeExists)
	})

	t.Run("cancelled attendee cannot be re-added", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-1")
		store.addBooking(model.Booking{
			ID: "bk-old", EventID: "ev-1", TicketID: "aaaaaaaaaaaa",
			Name: "Old", Email: "x@example.com", Contact: "555",
			Status: model.StatusCancelled, CreatedAt: testNow.Add(-time.Hour),
		})
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Old", "x@example.com", "555"))
		assert.ErrorIs(t, err, model.ErrAttendeeExists)
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-1")
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, user, registerReq("ev-1", "Guest", "x@example.com", "555"))
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("organizer of a different event is forbidden", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-2")
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Guest", "x@example.com", "555"))
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("admin may add to any event", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 2, "org-2")
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, admin, registerReq("ev-1", "Guest", "x@example.com", "555"))
		require.NoError(t, err)
	})

	t.Run("no seats", func(t *testing.T) {
		store := newFakeStore()
		seedEvent(store, "ev-1", 0, "org-1")
		svc := newBookingService(store)

		_, err := svc.AddAttendee(ctx, organizer, registerReq("ev-1", "Guest", "x@example.com", "555"))
		assert.ErrorIs(t, err, model.ErrNoSeats)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	seed := func(store *fakeStore) *model.Booking {
		seedEvent(store, "ev-1", 4, "org-1")
		b := model.Booking{
			ID: "bk-1", UserID: "user-1", EventID: "ev-1", TicketID: "bbbbbbbbbbbb",
			Name: "Alice", Email: "alice@example.com", Contact: "111",
			Status: model.StatusBooked, CreatedAt: testNow,
		}
		store.addBooking(b)
		return &b
	}

	t.Run("owner cancels and the seat is released once", func(t *testing.T) {
		store := newFakeStore()
		booking := seed(store)
		svc := newBookingService(store)

		require.NoError(t, svc.CancelBooking(ctx, user, booking.ID))

		event, _ := store.GetByID(ctx, "ev-1")
		assert.Equal(t, 5, event.Seats)
		assert.Equal(t, model.StatusCancelled, store.GetBooking(booking.ID).Status)

		err := svc.CancelBooking(ctx, user, booking.ID)
		assert.ErrorIs(t, err, model.ErrAlreadyCancelled)
		event, _ = store.GetByID(ctx, "ev-1")
		assert.Equal(t, 5, event.Seats)
	})

	t.Run("owning organizer may cancel", func(t *testing.T) {
		store := newFakeStore()
		booking := seed(store)
		svc := newBookingService(store)

		organizer := auth.Identity{UserID: "org-1", Role: model.RoleOrganizer}
		require.NoError(t, svc.CancelBooking(ctx, organizer, booking.ID))
	})

	t.Run("admin may cancel", func(t *testing.T) {
		store := newFakeStore()
		booking := seed(store)
		svc := newBookingService(store)

		admin := auth.Identity{UserID: "admin-1", Role: model.RoleAdmin}
		require.NoError(t, svc.CancelBooking(ctx, admin, booking.ID))
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		store := newFakeStore()
		booking := seed(store)
		svc := newBookingService(store)

		stranger := auth.Identity{UserID: "user-2", Role: model.RoleUser}
		err := svc.CancelBooking(ctx, stranger, booking.ID)
		assert.ErrorIs(t, err, model.ErrForbidden)
		assert.Equal(t, model.StatusBooked, store.GetBooking(booking.ID).Status)
	})

	t.Run("non-owning organizer is forbidden", func(t *testing.T) {
		store := newFakeStore()
		booking := seed(store)
		svc := newBookingService(store)

		other := auth.Identity{UserID: "org-2", Role: model.RoleOrganizer}
		err := svc.CancelBooking(ctx, other, booking.ID)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("unknown booking", func(t *testing.T) {
		svc := newBookingService(newFakeStore())
		err := svc.CancelBooking(ctx, user, "missing")
		assert.ErrorIs(t, err, model.ErrBookingNotFound)
	})

	t.Run("cancel survives a deleted event", func(t *testing.T) {
		store := newFakeStore()
		store.addBooking(model.Booking{
			ID: "bk-1", UserID: "user-1", EventID: "gone", TicketID: "cccccccccccc",
			Name: "Alice", Email: "alice@example.com", Contact: "111",
			Status: model.StatusBooked, CreatedAt: testNow,
		})
		svc := newBookingService(store)

		require.NoError(t, svc.CancelBooking(ctx, user, "bk-1"))
		assert.Equal(t, model.StatusCancelled, store.GetBooking("bk-1").Status)
	})
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedEvent(store, "ev-owned", 10, "org-1")
	seedEvent(store, "ev-other", 10, "org-2")
	store.addBooking(model.Booking{
		ID: "bk-own", UserID: "org-1", EventID: "ev-other", TicketID: "111111111111",
		Name: "Org", Email: "org@example.com", Contact: "901",
		Status: model.StatusBooked, CreatedAt: testNow,
	})
	store.addBooking(model.Booking{
		ID: "bk-attendee", UserID: "user-1", EventID: "ev-owned", TicketID: "222222222222",
		Name: "Alice", Email: "alice@example.com", Contact: "111",
		Status: model.StatusBooked, CreatedAt: testNow.Add(time.Minute),
	})
	store.addBooking(model.Booking{
		ID: "bk-unrelated", UserID: "user-2", EventID: "ev-other", TicketID: "333333333333",
		Name: "Bob", Email: "bob@example.com", Contact: "222",
		Status: model.StatusBooked, CreatedAt: testNow.Add(2 * time.Minute),
	})
	svc := newBookingService(store)

	t.Run("user sees only their own", func(t *testing.T) {
		got, err := svc.ListBookings(ctx, auth.Identity{UserID: "user-1", Role: model.RoleUser})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "bk-attendee", got[0].ID)
		require.NotNil(t, got[0].Event)
		assert.Equal(t, "ev-owned", got[0].Event.ID)
	})

	t.Run("organizer sees own plus owned events", func(t *testing.T) {
		got, err := svc.ListBookings(ctx, auth.Identity{UserID: "org-1", Role: model.RoleOrganizer})
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, b := range got {
			ids = append(ids, b.ID)
		}
		assert.ElementsMatch(t, []string{"bk-own", "bk-attendee"}, ids)
	})
}

func TestListAllBookings(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addUser(model.User{ID: "user-1", Name: "Alice Smith", Email: "alice@example.com", Role: model.RoleUser})
	seedEvent(store, "ev-1", 10, "org-1")
	store.addBooking(model.Booking{
		ID: "bk-1", UserID: "user-1", EventID: "ev-1", TicketID: "444444444444",
		Name: "Alice", Email: "alice@example.com", Contact: "111",
		Status: model.StatusBooked, CreatedAt: testNow,
	})
	store.addBooking(model.Booking{
		ID: "bk-dangling", EventID: "gone", TicketID: "555555555555",
		Name: "Guest", Email: "guest@example.com", Contact: "999",
		Status: model.StatusBooked, CreatedAt: testNow.Add(time.Minute),
	})
	svc := newBookingService(store)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		_, err := svc.ListAllBookings(ctx, user)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("admin sees all with display fallbacks", func(t *testing.T) {
		rows, err := svc.ListAllBookings(ctx, auth.Identity{UserID: "admin-1", Role: model.RoleAdmin})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		byID := map[string]model.AdminBookingRow{}
		for _, row := range rows {
			byID[row.ID] = row
		}
		assert.Equal(t, "Go Conference", byID["bk-1"].EventName)
		assert.Equal(t, "Alice Smith", byID["bk-1"].UserName)
		assert.Equal(t, "Unknown Event", byID["bk-dangling"].EventName)
		assert.Equal(t, "Guest", byID["bk-dangling"].UserName)
	})
}
