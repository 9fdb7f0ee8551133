package availability

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
)

func day(d int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

func stay(room string, from, to int) reservations.RoomStay {
	return reservations.RoomStay{Room: rooms.RoomID(room), Range: daterange.DateRange{CheckIn: day(from), CheckOut: day(to)}}
}

func held(id string, status reservations.Status, stays ...reservations.RoomStay) *reservations.Reservation {
	return &reservations.Reservation{
		ID:     reservations.ID(id),
		Status: status,
		Items:  []reservations.Item{{RoomType: "deluxe", Rate: "standard", Rooms: stays}},
	}
}

func freeRooms(ids ...string) map[rooms.RoomID]*rooms.Room {
	out := make(map[rooms.RoomID]*rooms.Room, len(ids))
	for _, id := range ids {
		out[rooms.RoomID(id)] = &rooms.Room{ID: rooms.RoomID(id), Number: id, Status: rooms.StatusFree}
	}
	return out
}

func TestCheckPassesFreeRoomsWithoutOverlap(t *testing.T) {
	snap := Snapshot{
		Rooms:    freeRooms("R101", "R102"),
		Existing: []*reservations.Reservation{held("res-old", reservations.StatusConfirmed, stay("R101", 10, 15))},
	}
	conflicts := Check([]reservations.RoomStay{stay("R101", 15, 20), stay("R102", 12, 14)}, snap, "")
	assert.Empty(t, conflicts, "back-to-back stays do not overlap")
}

func TestCheckReportsEveryReason(t *testing.T) {
	roomSet := freeRooms("R101", "R102")
	roomSet["R103"] = &rooms.Room{ID: "R103", Status: rooms.StatusMaintenance}
	snap := Snapshot{
		Rooms:    roomSet,
		Existing: []*reservations.Reservation{held("res-old", reservations.StatusPending, stay("R102", 14, 18))},
	}
	conflicts := Check([]reservations.RoomStay{
		stay("R101", 20, 15),
		stay("R102", 15, 20),
		stay("R103", 15, 20),
		stay("R404", 15, 20),
	}, snap, "")

	reasons := map[rooms.RoomID]Reason{}
	for _, c := range conflicts {
		reasons[c.Room] = c.Reason
	}
	assert.Equal(t, ReasonMalformedDates, reasons["R101"])
	assert.Equal(t, ReasonAlreadyBooked, reasons["R102"])
	assert.Equal(t, ReasonRoomNotFree, reasons["R103"])
	assert.Equal(t, ReasonRoomNotFound, reasons["R404"])
}

func TestCheckIgnoresTerminalReservations(t *testing.T) {
	snap := Snapshot{
		Rooms: freeRooms("R101"),
		Existing: []*reservations.Reservation{
			held("res-a", reservations.StatusCanceled, stay("R101", 10, 20)),
			held("res-b", reservations.StatusExpired, stay("R101", 10, 20)),
			held("res-c", reservations.StatusNoShowed, stay("R101", 10, 20)),
		},
	}
	assert.Empty(t, Check([]reservations.RoomStay{stay("R101", 12, 14)}, snap, ""))
}

func TestCheckExcludesReservationBeingUpdated(t *testing.T) {
	roomSet := freeRooms("R102")
	roomSet["R101"] = &rooms.Room{ID: "R101", Status: rooms.StatusReserved}
	self := held("res-self", reservations.StatusConfirmed, stay("R101", 10, 15))
	snap := Snapshot{Rooms: roomSet, Existing: []*reservations.Reservation{self}}

	assert.Empty(t, Check([]reservations.RoomStay{stay("R101", 10, 14), stay("R102", 10, 15)}, snap, "res-self"))

	conflicts := Check([]reservations.RoomStay{stay("R101", 10, 14)}, snap, "res-other")
	require.NotEmpty(t, conflicts)
	assert.Equal(t, ReasonRoomNotFree, conflicts[0].Reason)
}

func TestCheckFlagsIntraRequestDuplicates(t *testing.T) {
	conflicts := Check([]reservations.RoomStay{stay("R101", 10, 15), stay("R101", 14, 16)}, Snapshot{Rooms: freeRooms("R101")}, "")
	require.Len(t, conflicts, 1)
	assert.Equal(t, ReasonAlreadyBooked, conflicts[0].Reason)
}

func TestAcceptedReservationsNeverShareRoomNights(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roomIDs := []string{"R101", "R102", "R103"}
	var accepted []*reservations.Reservation

	for i := 0; i < 500; i++ {
		from := 1 + rng.Intn(60)
		to := from + 1 + rng.Intn(7)
		candidate := stay(roomIDs[rng.Intn(len(roomIDs))], from, to)
		snap := Snapshot{Rooms: freeRooms(roomIDs...), Existing: accepted}
		if len(Check([]reservations.RoomStay{candidate}, snap, "")) > 0 {
			continue
		}
		status := reservations.StatusPending
		if rng.Intn(2) == 0 {
			status = reservations.StatusConfirmed
		}
		accepted = append(accepted, held("res-"+strconv.Itoa(i), status, candidate))
	}

	require.NotEmpty(t, accepted)
	for i, a := range accepted {
		for _, b := range accepted[i+1:] {
			sa, sb := a.Stays()[0], b.Stays()[0]
			if sa.Room == sb.Room {
				assert.False(t, sa.Range.Overlaps(sb.Range), "%s and %s overlap on %s", a.ID, b.ID, sa.Room)
			}
		}
	}
}

func TestBuildCalendarOrdersRowsAndBlocks(t *testing.T) {
	roomList := []*rooms.Room{
		{ID: "r2", Number: "102", Status: rooms.StatusFree},
		{ID: "r1", Number: "101", Status: rooms.StatusReserved},
	}
	window := daterange.DateRange{CheckIn: day(1), CheckOut: day(30)}
	existing := []*reservations.Reservation{
		held("late", reservations.StatusConfirmed, stay("r1", 20, 22)),
		held("early", reservations.StatusPending, stay("r1", 3, 5)),
		held("outside", reservations.StatusConfirmed, reservations.RoomStay{Room: "r2", Range: daterange.DateRange{CheckIn: day(40), CheckOut: day(42)}}),
	}

	cal := BuildCalendar(window, roomList, existing)
	require.Len(t, cal.Rows, 2)
	assert.Equal(t, "101", cal.Rows[0].Number)
	require.Len(t, cal.Rows[0].Blocks, 2)
	assert.Equal(t, reservations.ID("early"), cal.Rows[0].Blocks[0].Reservation)
	assert.Empty(t, cal.Rows[1].Blocks)
}
