package dto

import (
	"time"

	"resortops/internal/domain/availability"
)

type CalendarBlock struct {
	Reservation string    `json:"reservation"`
	Reference   string    `json:"reference"`
	Status      string    `json:"status"`
	CheckIn     time.Time `json:"checkIn"`
	CheckOut    time.Time `json:"checkOut"`
}

type CalendarRow struct {
	Room   string          `json:"room"`
	Number string          `json:"number"`
	Type   string          `json:"roomType"`
	Status string          `json:"status"`
	Blocks []CalendarBlock `json:"blocks"`
}

type Calendar struct {
	From time.Time     `json:"from"`
	To   time.Time     `json:"to"`
	Rows []CalendarRow `json:"rooms"`
}

func MapCalendar(cal availability.Calendar) Calendar {
	rows := make([]CalendarRow, 0, len(cal.Rows))
	for _, row := range cal.Rows {
		blocks := make([]CalendarBlock, 0, len(row.Blocks))
		for _, b := range row.Blocks {
			blocks = append(blocks, CalendarBlock{
				Reservation: string(b.Reservation),
				Reference:   b.Reference,
				Status:      string(b.Status),
				CheckIn:     b.Range.CheckIn,
				CheckOut:    b.Range.CheckOut,
			})
		}
		rows = append(rows, CalendarRow{Room: string(row.Room), Number: row.Number, Type: row.Type, Status: string(row.Status), Blocks: blocks})
	}
	return Calendar{From: cal.Window.CheckIn, To: cal.Window.CheckOut, Rows: rows}
}
