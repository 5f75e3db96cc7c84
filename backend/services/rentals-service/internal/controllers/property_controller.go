package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type PropertyController struct {
	properties *services.PropertyService
}

func NewPropertyController(properties *services.PropertyService) *PropertyController {
	return &PropertyController{properties: properties}
}

// GET /api/v1/properties
func (c *PropertyController) SearchHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	q, err := parseSearchQuery(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	out, err := c.properties.Search(r.Context(), q, page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/properties/{id}
func (c *PropertyController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.properties.Get(r.Context(), optionalCaller(r), id)
	respond(w, http.StatusOK, p, err)
}

// GET /api/v1/owner/properties
func (c *PropertyController) ListOwnedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.properties.ListOwned(r.Context(), id, csvQuery[models.PropertyStatus](r, "status"), page)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/owner/properties
func (c *PropertyController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.PropertyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.properties.Create(r.Context(), id, req)
	respond(w, http.StatusCreated, p, err)
}

// PUT /api/v1/owner/properties/{id}
func (c *PropertyController) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.PropertyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	p, err := c.properties.Update(r.Context(), id, propertyID, req)
	respond(w, http.StatusOK, p, err)
}

// PATCH /api/v1/owner/properties/{id}/status
func (c *PropertyController) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.StatusChangeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.RowVersion, ok = expectedVersion(w, r, req.RowVersion); !ok {
		return
	}
	p, err := c.properties.ChangeStatus(r.Context(), id, propertyID, req)
	respond(w, http.StatusOK, p, err)
}

// DELETE /api/v1/owner/properties/{id}
func (c *PropertyController) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	expected, ok := expectedVersion(w, r, nil)
	if !ok {
		return
	}
	if err := c.properties.Delete(r.Context(), id, propertyID, expected); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseSearchQuery reads the public search filters. Rent bounds are cents.
func parseSearchQuery(r *http.Request) (dtos.PropertySearchQuery, error) {
	v := r.URL.Query()
	q := dtos.PropertySearchQuery{
		City:         strings.TrimSpace(v.Get("city")),
		State:        strings.TrimSpace(v.Get("state")),
		PropertyType: models.PropertyType(strings.TrimSpace(v.Get("property_type"))),
		Query:        strings.TrimSpace(v.Get("q")),
		Sort:         strings.TrimSpace(v.Get("sort")),
	}

	var err error
	if q.MinRentCents, err = intParam(v.Get("min_rent"), "min_rent"); err != nil {
		return q, err
	}
	if q.MaxRentCents, err = intParam(v.Get("max_rent"), "max_rent"); err != nil {
		return q, err
	}
	beds, err := intParam(v.Get("bedrooms"), "bedrooms")
	if err != nil {
		return q, err
	}
	q.MinBedrooms = int(beds)
	if q.MinBathrooms, err = floatParam(v.Get("bathrooms"), "bathrooms"); err != nil {
		return q, err
	}
	if q.RadiusMiles, err = floatParam(v.Get("radius_miles"), "radius_miles"); err != nil {
		return q, err
	}
	if raw := v.Get("pets_allowed"); raw != "" {
		b, perr := strconv.ParseBool(raw)
		if perr != nil {
			return q, utils.ValidationFailed("pets_allowed must be true or false", perr)
		}
		q.PetsAllowed = &b
	}
	for name, dst := range map[string]**float64{"lat": &q.Lat, "lng": &q.Lng} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		f, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return q, utils.ValidationFailed(name+" must be a number", perr)
		}
		*dst = &f
	}
	if q.PropertyType != "" && !q.PropertyType.Valid() {
		return q, utils.ValidationFailed("unknown property_type "+string(q.PropertyType), nil)
	}
	return q, nil
}

func intParam(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, utils.ValidationFailed(name+" must be a non-negative integer", err)
	}
	return n, nil
}

func floatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0, utils.ValidationFailed(name+" must be a non-negative number", err)
	}
	return f, nil
}
