package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/settings"
)

const settingsDocumentID = "admin"

type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection("settings")}
}

func (r *SettingsRepository) Load(ctx context.Context) (settings.Settings, error) {
	var doc settingsDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": settingsDocumentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return settings.Settings{}, settings.ErrNotFound
		}
		return settings.Settings{}, err
	}
	return doc.toSettings(), nil
}

func (r *SettingsRepository) Save(ctx context.Context, s settings.Settings) error {
	doc := newSettingsDocument(s)
	_, err := r.col.UpdateByID(ctx, settingsDocumentID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type settingsDocument struct {
	ID           string `bson:"_id"`
	Reservations struct {
		CancelationPolicy struct {
			IsRefundable           bool `bson:"isRefundable"`
			RefundableUntilInHours int  `bson:"refundableUntilInHours"`
			RefundablePercentage   int  `bson:"refundablePercentage"`
		} `bson:"cancelationPolicy"`
		ExpireAfter struct {
			Value int `bson:"value"`
		} `bson:"expireAfter"`
	} `bson:"reservations"`
	Hotel struct {
		Policies struct {
			HoursPassedBeforeConsideredNoShow int `bson:"hoursPassedBeforeConsideredNoShow"`
		} `bson:"policies"`
	} `bson:"hotel"`
	Taxes []struct {
		Name    string `bson:"name"`
		Percent string `bson:"percent"`
	} `bson:"taxes"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newSettingsDocument(s settings.Settings) settingsDocument {
	var doc settingsDocument
	doc.ID = settingsDocumentID
	p := s.Reservations.CancellationPolicy
	doc.Reservations.CancelationPolicy.IsRefundable = p.IsRefundable
	doc.Reservations.CancelationPolicy.RefundableUntilInHours = p.RefundableUntilInHours
	doc.Reservations.CancelationPolicy.RefundablePercentage = p.RefundablePercentage
	doc.Reservations.ExpireAfter.Value = s.Reservations.ExpireAfterMinutes
	doc.Hotel.Policies.HoursPassedBeforeConsideredNoShow = s.Hotel.NoShowGraceHours
	for _, t := range s.Taxes {
		doc.Taxes = append(doc.Taxes, struct {
			Name    string `bson:"name"`
			Percent string `bson:"percent"`
		}{Name: t.Name, Percent: t.Percent.String()})
	}
	doc.UpdatedAt = s.UpdatedAt.UTC()
	return doc
}

func (d settingsDocument) toSettings() settings.Settings {
	out := settings.Settings{
		Reservations: settings.Reservations{
			CancellationPolicy: reservations.CancellationPolicy{
				IsRefundable:           d.Reservations.CancelationPolicy.IsRefundable,
				RefundableUntilInHours: d.Reservations.CancelationPolicy.RefundableUntilInHours,
				RefundablePercentage:   d.Reservations.CancelationPolicy.RefundablePercentage,
			},
			ExpireAfterMinutes: d.Reservations.ExpireAfter.Value,
		},
		Hotel:     settings.Hotel{NoShowGraceHours: d.Hotel.Policies.HoursPassedBeforeConsideredNoShow},
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, t := range d.Taxes {
		pct, err := decimal.NewFromString(t.Percent)
		if err != nil {
			continue
		}
		out.Taxes = append(out.Taxes, settings.Tax{Name: t.Name, Percent: pct})
	}
	return out
}
