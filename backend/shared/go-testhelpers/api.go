package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

// BuildAuthRequest builds a request with an optional bearer token and a
// JSON body (nil for none).
func (h *TestHelper) BuildAuthRequest(method, reqURL, jwtString string, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			rdr = bytes.NewReader(b)
		case string:
			rdr = bytes.NewReader([]byte(b))
		default:
			raw, err := json.Marshal(b)
			require.NoError(h.T, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, reqURL, rdr)
	if jwtString != "" {
		req.Header.Set("Authorization", "Bearer "+jwtString)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "203.0.113.10:54321"
	return req
}

// Serve runs req through handler and returns the recorded response.
func (h *TestHelper) Serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON unmarshals a recorded response body into out.
func (h *TestHelper) DecodeJSON(rec *httptest.ResponseRecorder, out any) {
	require.NoError(h.T, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}
