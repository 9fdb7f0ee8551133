package availability

import (
	"sort"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
)

// Block is one reservation's hold on a room inside the calendar window.
type Block struct {
	Range       daterange.DateRange
	Reservation reservations.ID
	Reference   string
	Status      reservations.Status
}

type RoomRow struct {
	Room   rooms.RoomID
	Number string
	Type   string
	Status rooms.Status
	Blocks []Block
}

// Calendar is the room by reservation occupancy grid for a window.
type Calendar struct {
	Window daterange.DateRange
	Rows   []RoomRow
}

// BuildCalendar lays reservations onto rooms for window. Rooms are ordered by
// number, blocks by check-in.
func BuildCalendar(window daterange.DateRange, roomList []*rooms.Room, existing []*reservations.Reservation) Calendar {
	byRoom := make(map[rooms.RoomID][]Block)
	for _, r := range existing {
		for _, stay := range r.Stays() {
			if !stay.Range.Overlaps(window) {
				continue
			}
			byRoom[stay.Room] = append(byRoom[stay.Room], Block{
				Range:       stay.Range,
				Reservation: r.ID,
				Reference:   r.Reference,
				Status:      r.Status,
			})
		}
	}

	rows := make([]RoomRow, 0, len(roomList))
	for _, room := range roomList {
		blocks := byRoom[room.ID]
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].Range.CheckIn.Before(blocks[j].Range.CheckIn) })
		rows = append(rows, RoomRow{Room: room.ID, Number: room.Number, Type: room.RoomType, Status: room.Status, Blocks: blocks})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Number < rows[j].Number })
	return Calendar{Window: window, Rows: rows}
}
