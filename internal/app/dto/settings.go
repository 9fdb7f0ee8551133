package dto

import (
	"github.com/shopspring/decimal"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/settings"
)

type CancellationPolicy struct {
	IsRefundable           bool `json:"isRefundable"`
	RefundableUntilInHours int  `json:"refundableUntilInHours" validate:"gte=0"`
	RefundablePercentage   int  `json:"refundablePercentage" validate:"gte=0,lte=100"`
}

type Tax struct {
	Name    string          `json:"name" validate:"required"`
	Percent decimal.Decimal `json:"percent"`
}

type Settings struct {
	CancellationPolicy CancellationPolicy `json:"cancelationPolicy"`
	ExpireAfterMinutes int                `json:"expireAfterMinutes" validate:"gte=0"`
	NoShowGraceHours   int                `json:"hoursPassedBeforeConsideredNoShow" validate:"gte=1"`
	Taxes              []Tax              `json:"taxes" validate:"dive"`
}

func MapSettings(s settings.Settings) Settings {
	taxes := make([]Tax, 0, len(s.Taxes))
	for _, t := range s.Taxes {
		taxes = append(taxes, Tax{Name: t.Name, Percent: t.Percent})
	}
	p := s.Reservations.CancellationPolicy
	return Settings{
		CancellationPolicy: CancellationPolicy{
			IsRefundable:           p.IsRefundable,
			RefundableUntilInHours: p.RefundableUntilInHours,
			RefundablePercentage:   p.RefundablePercentage,
		},
		ExpireAfterMinutes: s.Reservations.ExpireAfterMinutes,
		NoShowGraceHours:   s.Hotel.NoShowGraceHours,
		Taxes:              taxes,
	}
}

func (d Settings) ToDomain() settings.Settings {
	taxes := make([]settings.Tax, 0, len(d.Taxes))
	for _, t := range d.Taxes {
		taxes = append(taxes, settings.Tax{Name: t.Name, Percent: t.Percent})
	}
	return settings.Settings{
		Reservations: settings.Reservations{
			CancellationPolicy: reservations.CancellationPolicy{
				IsRefundable:           d.CancellationPolicy.IsRefundable,
				RefundableUntilInHours: d.CancellationPolicy.RefundableUntilInHours,
				RefundablePercentage:   d.CancellationPolicy.RefundablePercentage,
			},
			ExpireAfterMinutes: d.ExpireAfterMinutes,
		},
		Hotel: settings.Hotel{NoShowGraceHours: d.NoShowGraceHours},
		Taxes: taxes,
	}
}
