package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestAcquireLocksFreeRoom(t *testing.T) {
	room := &Room{ID: "R101", Status: StatusFree}
	require.NoError(t, room.Acquire("res-1", 15*time.Minute, now))

	assert.Equal(t, StatusReserved, room.Status)
	require.NotNil(t, room.Lock)
	assert.Equal(t, now.Add(15*time.Minute), room.Lock.Until)
	assert.True(t, room.HeldBy("res-1"))
	assert.False(t, room.IsLockExpired(now))
	assert.True(t, room.IsLockExpired(now.Add(15*time.Minute)))
}

func TestAcquireRefusesRoomHeldByAnotherReservation(t *testing.T) {
	room := &Room{ID: "R101", Status: StatusFree}
	require.NoError(t, room.Acquire("res-1", time.Minute, now))

	err := room.Acquire("res-2", time.Minute, now)
	require.ErrorIs(t, err, ErrLockedByOther)

	require.NoError(t, room.Acquire("res-2", time.Minute, now.Add(2*time.Minute)))
	assert.True(t, room.HeldBy("res-2"))
}

func TestAcquireRefusesNonFreeRooms(t *testing.T) {
	for _, status := range []Status{StatusOccupied, StatusMaintenance, StatusRenovation, StatusUnavailable, StatusReserved} {
		room := &Room{ID: "R1", Status: status}
		assert.ErrorIs(t, room.Acquire("res-1", time.Minute, now), ErrNotFree, status)
	}
	assert.ErrorIs(t, (&Room{Status: StatusFree}).Acquire("res", 0, now), ErrInvalidLockTTL)
}

func TestReleaseLeavesOccupiedRoomsAlone(t *testing.T) {
	occupied := &Room{ID: "R1", Status: StatusOccupied}
	assert.False(t, occupied.Release(now))
	assert.Equal(t, StatusOccupied, occupied.Status)

	locked := &Room{ID: "R2", Status: StatusFree}
	require.NoError(t, locked.Acquire("res", time.Minute, now))
	assert.True(t, locked.Release(now))
	assert.Equal(t, StatusFree, locked.Status)
	assert.Nil(t, locked.Lock)

	assert.False(t, locked.Release(now), "second release is a no-op")
}

func TestReserveConvertsOwnLock(t *testing.T) {
	room := &Room{ID: "R1", Status: StatusFree}
	require.NoError(t, room.Acquire("res", time.Minute, now))
	require.NoError(t, room.Reserve("res", now))
	assert.Equal(t, StatusReserved, room.Status)
	assert.Nil(t, room.Lock)

	other := &Room{ID: "R2", Status: StatusFree}
	require.NoError(t, other.Acquire("res-a", time.Minute, now))
	assert.ErrorIs(t, other.Reserve("res-b", now), ErrLockedByOther)
}

func TestOccupyAndVacate(t *testing.T) {
	room := &Room{ID: "R1", Status: StatusReserved}
	require.NoError(t, room.Occupy(now))
	assert.Equal(t, StatusOccupied, room.Status)

	assert.True(t, room.Vacate(now))
	assert.Equal(t, StatusFree, room.Status)
	assert.False(t, room.Vacate(now))

	assert.ErrorIs(t, (&Room{Status: StatusMaintenance}).Occupy(now), ErrNotOccupiable)
}

func TestCloneCopiesLock(t *testing.T) {
	room := &Room{ID: "R1", Status: StatusFree}
	require.NoError(t, room.Acquire("res", time.Minute, now))
	clone := room.Clone()
	clone.Lock.Reservation = "other"
	assert.Equal(t, "res", room.Lock.Reservation)
}
