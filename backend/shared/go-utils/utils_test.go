package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUSState(t *testing.T) {
	cases := map[string]string{
		"fl":             "FL",
		"Florida":        "FL",
		" new  york ":    "NY",
		"N.C.":           "NC",
		"Washington D.C": "DC",
		"puerto-rico":    "PR",
	}
	for in, want := range cases {
		got, err := NormalizeUSState(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeUSState("Atlantis")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	p, err := ParsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, p)
	assert.Equal(t, 0, p.Offset())

	r = httptest.NewRequest(http.MethodGet, "/x?page=3&page_size=500", nil)
	p, err = ParsePagination(r)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 200, p.Offset())

	r = httptest.NewRequest(http.MethodGet, "/x?page=0", nil)
	_, err = ParsePagination(r)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$1,250.50", FormatCents(125050))
	assert.Equal(t, "$1,000,000.00", FormatCents(100000000))
	assert.Equal(t, "-$12.00", FormatCents(-1200))
}

func TestContentHash(t *testing.T) {
	h := ContentHash("lease body")
	assert.Len(t, h, 64)
	assert.True(t, HashMatches(h, " "+h+" "))
	assert.False(t, HashMatches("", ""))
	assert.False(t, HashMatches(h, ContentHash("lease body v2")))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+13055550100", NormalizePhone("(305) 555-0100"))
	assert.Equal(t, "+13055550100", NormalizePhone("1 305 555 0100"))
	assert.Equal(t, "+442071838750", NormalizePhone("+44 20 7183 8750"))
	assert.True(t, IsE164(NormalizePhone("305.555.0100")))
	assert.False(t, IsE164(NormalizePhone("555-0100")))
}

func TestValidateEmailUsesMX(t *testing.T) {
	orig := MXLookup
	t.Cleanup(func() { MXLookup = orig })

	MXLookup = func(_ context.Context, domain string) ([]*net.MX, error) {
		if domain == "palmsestate.com" {
			return []*net.MX{{Host: "mx.palmsestate.com", Pref: 10}}, nil
		}
		return nil, errors.New("no such host")
	}

	ok, err := ValidateEmail(context.Background(), "", "jane@palmsestate.com", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidateEmail(context.Background(), "", "jane@nowhere.invalid", false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ValidateEmail(context.Background(), "", "Jane <jane@palmsestate.com>", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	t.Run("headers from untrusted peers are ignored", func(t *testing.T) {
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		r.Header.Set("X-Real-IP", "203.0.113.8")
		assert.Equal(t, "10.0.0.9", ClientIP(r))
		r.Header.Del("X-Forwarded-For")
		r.Header.Del("X-Real-IP")
	})

	trust, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1", " "})
	require.NoError(t, err)

	t.Run("rightmost untrusted hop wins", func(t *testing.T) {
		r.Header.Set("X-Forwarded-For", "198.51.100.99, 203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", trust.ClientIP(r))

		// a client-chosen prefix does not change the answer
		r.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", trust.ClientIP(r))
	})

	t.Run("malformed hops stop the walk", func(t *testing.T) {
		r.Header.Set("X-Forwarded-For", "203.0.113.7, garbage, 10.0.0.1")
		assert.Equal(t, "10.0.0.1", trust.ClientIP(r))
		r.Header.Del("X-Forwarded-For")
	})

	t.Run("other proxy headers apply without X-Forwarded-For", func(t *testing.T) {
		r.Header.Set("Forwarded", `proto=https;for="198.51.100.4"`)
		assert.Equal(t, "198.51.100.4", trust.ClientIP(r))
		r.Header.Del("Forwarded")
	})

	t.Run("package default follows SetTrustedProxies", func(t *testing.T) {
		SetTrustedProxies(trust)
		defer SetTrustedProxies(nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7")
		assert.Equal(t, "203.0.113.7", ClientIP(r))
		r.Header.Del("X-Forwarded-For")
	})

	_, err = ParseTrustedProxies([]string{"not-a-cidr/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"nope"})
	assert.Error(t, err)
}

func TestHandleAppError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleAppError(w, VersionConflict(map[string]int{"row_version": 4}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":"row_version_conflict","message":"The record was modified by someone else; reload and retry","details":{"row_version":4}}`, w.Body.String())

	w = httptest.NewRecorder()
	HandleAppError(w, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeInternal)
}
