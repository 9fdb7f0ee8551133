package reservations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
	"resortops/internal/domain/shared/money"
)

var created = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func stay(room string, from, to time.Time) RoomStay {
	return RoomStay{Room: roomID(room), Range: daterange.DateRange{CheckIn: from, CheckOut: to}}
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func newPending(t *testing.T) *Reservation {
	t.Helper()
	r, err := New(CreateParams{
		ID:        "res-1",
		Reference: "RSV-ABC234",
		Contact:   WalkIn("Awa Diallo", "awa@example.com", ""),
		Items:     []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R101", day(15), day(20))}}},
		Deposit:   money.Francs(25000),
		CreatedAt: created,
	})
	require.NoError(t, err)
	return r
}

func TestNewDerivesWindowFromStays(t *testing.T) {
	r, err := New(CreateParams{
		ID:      "res-1",
		Contact: Registered("guest-1", "Awa", "awa@example.com"),
		Items: []Item{
			{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R101", day(15), day(18))}},
			{RoomType: "suite", Rate: "flex", Rooms: []RoomStay{stay("R201", day(16), day(20))}},
		},
		CreatedAt: created,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, day(15), r.Range.CheckIn)
	assert.Equal(t, day(20), r.Range.CheckOut)
	assert.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "reservation.created", r.PendingEvents()[0].EventName())
}

func TestNewRejectsBadInput(t *testing.T) {
	base := CreateParams{
		Contact: WalkIn("Awa", "awa@example.com", ""),
		Items:   []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R101", day(15), day(20))}}},
	}

	noItems := base
	noItems.Items = nil
	_, err := New(noItems)
	assert.ErrorIs(t, err, ErrNoItems)

	inverted := base
	inverted.Items = []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R101", day(20), day(15))}}}
	_, err = New(inverted)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	duplicate := base
	duplicate.Items = []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{
		stay("R101", day(15), day(18)),
		stay("R101", day(17), day(19)),
	}}}
	_, err = New(duplicate)
	assert.ErrorIs(t, err, ErrDuplicateRoom)

	noContact := base
	noContact.Contact = Contact{}
	_, err = New(noContact)
	assert.ErrorIs(t, err, ErrContactRequired)

	negative := base
	negative.Deposit = money.Francs(-1)
	_, err = New(negative)
	assert.ErrorIs(t, err, ErrInvalidDeposit)
}

func TestOnsiteBookingStartsConfirmed(t *testing.T) {
	r, err := New(CreateParams{
		ID:        "res-2",
		Contact:   WalkIn("Moussa", "", "+221770000000"),
		Items:     []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R101", day(15), day(16))}}},
		Onsite:    true,
		CreatedBy: "staff-7",
		CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, "staff-7", r.CreatedBy)
}

func TestLifecycleTransitions(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.Confirm(created))
	assert.ErrorIs(t, r.Confirm(created), ErrInvalidState)
	assert.ErrorIs(t, r.Expire(created), ErrInvalidState)

	require.NoError(t, r.CheckIn(day(15)))
	assert.ErrorIs(t, r.MarkNoShow(day(16)), ErrInvalidState)
	assert.ErrorIs(t, r.Cancel("late", money.Money{}, day(16)), ErrInvalidState)
	require.NoError(t, r.CheckOut(day(20)))
	assert.True(t, r.Status.Terminal())

	for _, transition := range []func(time.Time) error{r.Confirm, r.CheckIn, r.CheckOut, r.MarkNoShow, r.Expire} {
		assert.ErrorIs(t, transition(day(21)), ErrInvalidState)
	}
}

func TestPendingOnlyExpires(t *testing.T) {
	r := newPending(t)
	assert.ErrorIs(t, r.Cancel("nope", money.Money{}, created), ErrInvalidState)
	assert.ErrorIs(t, r.CheckIn(created), ErrInvalidState)
	require.NoError(t, r.Expire(created.Add(time.Hour)))
	assert.Equal(t, StatusExpired, r.Status)
}

func TestReplaceItemsStaysWithinWindow(t *testing.T) {
	r := newPending(t)
	_, err := r.ReplaceItems(r.Items, created)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, r.Confirm(created))
	outside := []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R102", day(14), day(18))}}}
	_, err = r.ReplaceItems(outside, created)
	require.ErrorIs(t, err, ErrStayOutsideStay)
	assert.Equal(t, roomID("R101"), r.Items[0].Rooms[0].Room, "items untouched on rejection")

	inside := []Item{{RoomType: "deluxe", Rate: "standard", Rooms: []RoomStay{stay("R102", day(15), day(20))}}}
	previous, err := r.ReplaceItems(inside, created)
	require.NoError(t, err)
	assert.Equal(t, roomID("R102"), r.Items[0].Rooms[0].Room)

	r.RestoreItems(previous, created)
	assert.Equal(t, roomID("R101"), r.Items[0].Rooms[0].Room)
}

func TestCloneIsDeep(t *testing.T) {
	r := newPending(t)
	c := r.Clone()
	c.Items[0].Rooms[0].Room = "R999"
	assert.Equal(t, roomID("R101"), r.Items[0].Rooms[0].Room)
	assert.Empty(t, c.PendingEvents())
}

func TestCancellationPolicyRefund(t *testing.T) {
	policy := CancellationPolicy{IsRefundable: true, RefundableUntilInHours: 48, RefundablePercentage: 80}

	refund, err := policy.Refund(money.Francs(100000), created, created.Add(47*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), refund.Amount)

	_, err = policy.Refund(money.Francs(100000), created, created.Add(49*time.Hour))
	assert.ErrorIs(t, err, ErrRefundWindowClosed)

	_, err = CancellationPolicy{}.Refund(money.Francs(100000), created, created)
	assert.ErrorIs(t, err, ErrNotRefundable)

	full, err := CancellationPolicy{IsRefundable: true, RefundableUntilInHours: 1, RefundablePercentage: 150}.Refund(money.Francs(900), created, created)
	require.NoError(t, err)
	assert.Equal(t, int64(900), full.Amount)
}

type referenceRepo struct {
	Repository
	taken map[string]bool
}

func (r referenceRepo) ReferenceExists(_ context.Context, ref string) (bool, error) {
	return r.taken[ref], nil
}

func TestAllocateReferenceRetriesOnCollision(t *testing.T) {
	candidates := []string{"RSV-AAAAAA", "RSV-BBBBBB", "RSV-CCCCCC"}
	i := 0
	source := func() (string, error) {
		c := candidates[i]
		i++
		return c, nil
	}
	repo := referenceRepo{taken: map[string]bool{"RSV-AAAAAA": true, "RSV-BBBBBB": true}}

	ref, err := AllocateReference(context.Background(), repo, source)
	require.NoError(t, err)
	assert.Equal(t, "RSV-CCCCCC", ref)
}

func TestAllocateReferenceGivesUp(t *testing.T) {
	calls := 0
	source := func() (string, error) {
		calls++
		return "RSV-AAAAAA", nil
	}
	repo := referenceRepo{taken: map[string]bool{"RSV-AAAAAA": true}}

	_, err := AllocateReference(context.Background(), repo, source)
	require.ErrorIs(t, err, ErrReferenceExhausted)
	assert.Equal(t, MaxReferenceAttempts, calls)
}

func TestRandomReferenceFormat(t *testing.T) {
	ref, err := RandomReference()
	require.NoError(t, err)
	assert.Regexp(t, `^RSV-[A-Z2-9]{6}$`, ref)
}

func TestNightsOfDeduplicates(t *testing.T) {
	nights := NightsOf([]RoomStay{stay("R101", day(15), day(17)), stay("R102", day(15), day(16))})
	require.Len(t, nights, 3)
	assert.Equal(t, "R101:2025-06-15", nights[0].Key())
	assert.Equal(t, "R101:2025-06-16", nights[1].Key())
	assert.Equal(t, "R102:2025-06-15", nights[2].Key())
}

func TestContactValidation(t *testing.T) {
	assert.NoError(t, Registered("guest-1", "", "").Validate())
	assert.ErrorIs(t, Registered("", "Awa", "awa@example.com").Validate(), ErrContactRequired)
	assert.ErrorIs(t, WalkIn("", "awa@example.com", "").Validate(), ErrContactRequired)
	assert.ErrorIs(t, WalkIn("Awa", "", "").Validate(), ErrContactRequired)
	assert.ErrorIs(t, WalkIn("Awa", "not-an-email", "").Validate(), ErrInvalidEmail)
}

func roomID(s string) rooms.RoomID { return rooms.RoomID(s) }
