package fingerprint_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/fingerprint"
)

func TestComputeIsPureAndStable(t *testing.T) {
	f := fingerprint.Fields{
		URI:       "http://example.com/a",
		Method:    "get",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Gecko/20100101 Firefox/120.0",
	}

	a := fingerprint.Compute(f)
	b := fingerprint.Compute(f)
	require.Equal(t, a, b)
	require.Len(t, a, 40) // SHA-1 hex digest length
	require.Equal(t, a, fingerprintUpper(a))
}

func TestComputeIgnoresConnectionHeaders(t *testing.T) {
	req1 := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	req1.Header.Set("Cookie", "session=abc")
	req1.Header.Set("Date", "Mon, 01 Jan 2024 00:00:00 GMT")
	req1.Host = "host-a"

	req2 := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	req2.Header.Set("Cookie", "session=xyz")
	req2.Header.Set("Date", "Tue, 02 Jan 2024 00:00:00 GMT")
	req2.Host = "host-b"

	f1 := fingerprint.FromRequest(req1)
	f2 := fingerprint.FromRequest(req2)

	require.Equal(t, fingerprint.Compute(f1), fingerprint.Compute(f2))
}

func TestComputeDiffersByMethod(t *testing.T) {
	req1 := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	req2 := httptest.NewRequest(http.MethodPost, "http://example.com/a", nil)

	require.NotEqual(t,
		fingerprint.Compute(fingerprint.FromRequest(req1)),
		fingerprint.Compute(fingerprint.FromRequest(req2)),
	)
}

func TestMissingReferrerUsesSentinel(t *testing.T) {
	withRef := fingerprint.Fields{URI: "http://x/y", Method: "GET", Referrer: "http://example"}
	withoutRef := fingerprint.Fields{URI: "http://x/y", Method: "GET"}

	require.Equal(t, fingerprint.Compute(withRef), fingerprint.Compute(withoutRef))
}

func TestStoreKeyHasPrefix(t *testing.T) {
	key := fingerprint.StoreKey(fingerprint.Fields{URI: "http://x/y", Method: "GET"})
	require.Contains(t, key, fingerprint.StorePrefix)
	require.Equal(t, fingerprint.StorePrefix+fingerprint.Compute(fingerprint.Fields{URI: "http://x/y", Method: "GET"}), key)
}

func fingerprintUpper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
