package setup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"binday/internal/models"
)

// PremisesFinder is the part of api.Client the resolver needs.
type PremisesFinder interface {
	FindPremises(ctx context.Context, match func(models.PremisesRecord) bool) (models.PremisesRecord, bool, error)
}

// Resolver maps a postcode and house to the council's premises identifier.
// It is only used at registration time and never caches.
type Resolver struct {
	client PremisesFinder
	log    *slog.Logger
}

func NewResolver(client PremisesFinder, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{client: client, log: log}
}

// Resolve returns ErrInvalidPostcode for malformed postcodes and ErrNotFound
// both when nothing matches and when the premises feed cannot be read.
func (r *Resolver) Resolve(ctx context.Context, postcode, house string) (models.PremisesRecord, error) {
	pc, err := NormalizePostcode(postcode)
	if err != nil {
		return models.PremisesRecord{}, fmt.Errorf("%q: %w", postcode, err)
	}

	house = strings.TrimSpace(house)
	if house == "" {
		return models.PremisesRecord{}, ErrNotFound
	}

	byNumber := isNumeric(house)
	rec, found, err := r.client.FindPremises(ctx, func(p models.PremisesRecord) bool {
		if p.Postcode != pc {
			return false
		}
		if byNumber {
			return p.HouseNumber == house
		}
		return strings.EqualFold(p.HouseName, house)
	})
	if err != nil {
		r.log.Error("premises lookup failed", "postcode", pc, "house", house, "err", err)
		return models.PremisesRecord{}, ErrNotFound
	}
	if !found {
		r.log.Debug("no premises matched", "postcode", pc, "house", house)
		return models.PremisesRecord{}, ErrNotFound
	}

	r.log.Info("resolved premises", "postcode", pc, "house", house, "premises_id", rec.PremisesID)
	return rec, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
