package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	shared_dtos "github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const originLat, originLng = 25.7617, -80.1918

// placeAt creates an owner listing and moves it to the given coordinates.
// A nil lat leaves the listing without coordinates.
func (e *testEnv) placeAt(t *testing.T, owner *models.Profile, title string, lat, lng *float64, status models.PropertyStatus) *models.Property {
	t.Helper()
	p := e.h.CreateTestProperty(owner.ID)
	updated, err := e.h.Store.Properties.Mutate(e.h.Ctx, p.ID, nil, func(row *models.Property) (*models.AuditLog, error) {
		row.Title = title
		row.Latitude, row.Longitude = lat, lng
		row.Status = status
		return nil, nil
	})
	require.NoError(t, err)
	return updated
}

func titles(items []shared_dtos.PropertySummary) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestRadiusSearch(t *testing.T) {
	e := newTestEnv(t)
	owner := e.h.CreateTestProfile(models.RoleOwner, "owner")
	at := func(dLat, dLng float64) (*float64, *float64) {
		lat, lng := originLat+dLat, originLng+dLng
		return &lat, &lng
	}

	lat, lng := at(0.0725, 0) // about five miles north
	e.placeAt(t, owner, "five miles", lat, lng, models.PropertyStatusAvailable)
	lat, lng = at(0.0145, 0) // about a mile north
	e.placeAt(t, owner, "one mile", lat, lng, models.PropertyStatusAvailable)
	lat, lng = at(0.13, 0.15) // inside the bounding box, outside the circle
	e.placeAt(t, owner, "box corner", lat, lng, models.PropertyStatusAvailable)
	lat, lng = at(0.36, 0.05) // Fort Lauderdale
	e.placeAt(t, owner, "far", lat, lng, models.PropertyStatusAvailable)
	lat, lng = at(0.01, 0)
	e.placeAt(t, owner, "rented", lat, lng, models.PropertyStatusRented)
	e.placeAt(t, owner, "no coordinates", nil, nil, models.PropertyStatusAvailable)

	olat, olng := originLat, originLng
	q := dtos.PropertySearchQuery{Lat: &olat, Lng: &olng, RadiusMiles: 10}

	res, err := e.listings.Search(e.h.Ctx, q, utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"one mile", "five miles"}, titles(res.Items))
	require.NotNil(t, res.Items[0].DistanceMiles)
	require.NotNil(t, res.Items[1].DistanceMiles)
	assert.InDelta(t, 1.0, *res.Items[0].DistanceMiles, 0.1)
	assert.InDelta(t, 5.0, *res.Items[1].DistanceMiles, 0.2)

	t.Run("pages slice the distance-ordered results", func(t *testing.T) {
		second, err := e.listings.Search(e.h.Ctx, q, utils.Pagination{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, second.Total)
		assert.Equal(t, []string{"five miles"}, titles(second.Items))

		past, err := e.listings.Search(e.h.Ctx, q, utils.Pagination{Page: 3, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, past.Total)
		assert.Empty(t, past.Items)
	})

	t.Run("a wider radius reaches further", func(t *testing.T) {
		wide := q
		wide.RadiusMiles = 40
		res, err := e.listings.Search(e.h.Ctx, wide, utils.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"one mile", "five miles", "box corner", "far"}, titles(res.Items))
	})

	t.Run("rent order keeps the distances", func(t *testing.T) {
		byRent := q
		byRent.Sort = "rent_asc"
		res, err := e.listings.Search(e.h.Ctx, byRent, utils.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		for _, it := range res.Items {
			assert.NotNil(t, it.DistanceMiles, it.Title)
		}
	})

	t.Run("bad coordinates are rejected", func(t *testing.T) {
		_, err := e.listings.Search(e.h.Ctx, dtos.PropertySearchQuery{Lat: &olat}, utils.Pagination{Page: 1, PageSize: 10})
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

		_, err = e.listings.Search(e.h.Ctx, dtos.PropertySearchQuery{Sort: "distance"}, utils.Pagination{Page: 1, PageSize: 10})
		requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	})
}
