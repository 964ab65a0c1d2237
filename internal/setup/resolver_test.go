package setup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binday/internal/models"
)

type fakeFinder struct {
	records []models.PremisesRecord
	err     error
	calls   int
}

func (f *fakeFinder) FindPremises(_ context.Context, match func(models.PremisesRecord) bool) (models.PremisesRecord, bool, error) {
	f.calls++
	if f.err != nil {
		return models.PremisesRecord{}, false, f.err
	}
	for _, r := range f.records {
		if match(r) {
			return r, true, nil
		}
	}
	return models.PremisesRecord{}, false, nil
}

func premises() []models.PremisesRecord {
	return []models.PremisesRecord{
		{PremisesID: "1", HouseNumber: "12", Postcode: "LS1 1AA"},
		{PremisesID: "2", HouseName: "ROSE COTTAGE", Postcode: "LS1 1AA"},
		{PremisesID: "3", HouseNumber: "12", Postcode: "LS2 2BB"},
		{PremisesID: "4", HouseName: "12", Postcode: "LS2 2BB"},
	}
}

func TestResolve_ByHouseNumber(t *testing.T) {
	r := NewResolver(&fakeFinder{records: premises()}, nil)

	rec, err := r.Resolve(context.Background(), "ls22bb", "12")
	require.NoError(t, err)
	assert.Equal(t, "3", rec.PremisesID)
}

func TestResolve_ByHouseNameIsCaseInsensitive(t *testing.T) {
	r := NewResolver(&fakeFinder{records: premises()}, nil)

	rec, err := r.Resolve(context.Background(), "LS1 1AA", "Rose Cottage")
	require.NoError(t, err)
	assert.Equal(t, "2", rec.PremisesID)
}

func TestResolve_NotFound(t *testing.T) {
	r := NewResolver(&fakeFinder{records: premises()}, nil)

	_, err := r.Resolve(context.Background(), "LS1 1AA", "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_TransportFailureIsNotFound(t *testing.T) {
	f := &fakeFinder{err: errors.New("connection refused")}
	r := NewResolver(f, nil)

	_, err := r.Resolve(context.Background(), "LS1 1AA", "12")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.calls)
}

func TestResolve_InvalidPostcodeSkipsDownload(t *testing.T) {
	f := &fakeFinder{records: premises()}
	r := NewResolver(f, nil)

	_, err := r.Resolve(context.Background(), "LS1", "12")
	assert.ErrorIs(t, err, ErrInvalidPostcode)
	assert.Zero(t, f.calls)
}
