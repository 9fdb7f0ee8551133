package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/money"
)

var (
	ErrRateNotFound      = errors.New("billing: no nightly rate for room type")
	ErrNegativeComponent = errors.New("billing: price components cannot be negative")
)

// RateCard resolves the nightly price of a room type under a named rate plan.
type RateCard interface {
	NightlyRate(ctx context.Context, roomType, rate string) (money.Money, error)
}

type TaxRate struct {
	Name    string
	Percent decimal.Decimal
}

type Line struct {
	Room     rooms.RoomID
	RoomType string
	Rate     string
	Nights   int
	Nightly  money.Money
	Amount   money.Money
}

type TaxLine struct {
	Name    string
	Percent decimal.Decimal
	Amount  money.Money
}

// Breakdown is the priced view of a reservation's items.
type Breakdown struct {
	Lines      []Line
	Net        money.Money
	Taxes      []TaxLine
	Tax        money.Money
	GrandTotal money.Money
}

func (b Breakdown) Copy() Breakdown {
	clone := b
	clone.Lines = append([]Line(nil), b.Lines...)
	clone.Taxes = append([]TaxLine(nil), b.Taxes...)
	return clone
}

// Quote prices every room stay at its nightly rate and applies each tax rate
// to the net amount.
func Quote(ctx context.Context, card RateCard, items []reservations.Item, taxes []TaxRate) (Breakdown, error) {
	net := money.Francs(0)
	var lines []Line
	nightly := make(map[string]money.Money)
	for _, item := range items {
		key := item.RoomType + "/" + item.Rate
		price, ok := nightly[key]
		if !ok {
			var err error
			price, err = card.NightlyRate(ctx, item.RoomType, item.Rate)
			if err != nil {
				return Breakdown{}, fmt.Errorf("%s/%s: %w", item.RoomType, item.Rate, err)
			}
			if price.IsNegative() {
				return Breakdown{}, ErrNegativeComponent
			}
			nightly[key] = price
		}
		for _, stay := range item.Rooms {
			nights := stay.Range.Nights()
			amount := price.Multiply(int64(nights))
			lines = append(lines, Line{Room: stay.Room, RoomType: item.RoomType, Rate: item.Rate, Nights: nights, Nightly: price, Amount: amount})
			sum, err := net.Add(amount)
			if err != nil {
				return Breakdown{}, err
			}
			net = sum
		}
	}

	tax := net.Zero()
	taxLines := make([]TaxLine, 0, len(taxes))
	for _, rate := range taxes {
		if rate.Percent.IsNegative() {
			return Breakdown{}, ErrNegativeComponent
		}
		amount := net.Percent(rate.Percent)
		taxLines = append(taxLines, TaxLine{Name: rate.Name, Percent: rate.Percent, Amount: amount})
		tax, _ = tax.Add(amount)
	}
	grand, err := net.Add(tax)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{Lines: lines, Net: net, Taxes: taxLines, Tax: tax, GrandTotal: grand}, nil
}
