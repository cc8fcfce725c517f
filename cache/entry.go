package cache

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Entry is the persisted record for one fingerprint.
type Entry struct {
	ETag            string      `json:"etag,omitempty"`
	LastModified    string      `json:"last_modified,omitempty"`
	Status          int         `json:"status"`
	ResponseHeaders http.Header `json:"response_headers"`
	ContentHeaders  http.Header `json:"content_headers"`
	Body            []byte      `json:"body"`
	MustRevalidate  bool        `json:"must_revalidate"`
}

// encodeEntry serializes an Entry to bytes for the injected BlobCache. The
// encoding is internal to this package; any format that round-trips all
// fields is conforming.
func encodeEntry(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(b []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// splitHeaders partitions response headers into response_headers and
// content_headers: headers describing the representation (Content-*)
// are kept separate from the rest.
func splitHeaders(h http.Header) (response, content http.Header) {
	response = http.Header{}
	content = http.Header{}
	for k, v := range h {
		dst := response
		if strings.HasPrefix(http.CanonicalHeaderKey(k), "Content-") {
			dst = content
		}
		dst[k] = append([]string(nil), v...)
	}
	return response, content
}

func mergeHeaders(response, content http.Header) http.Header {
	out := http.Header{}
	for k, v := range response {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range content {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// useCachedData reports whether a validating response confirms the
// entry is still current: a 304 is treated directly as a match,
// otherwise both ETag and Last-Modified comparisons must hold,
// vacuously true when the corresponding response header is absent.
func (e *Entry) useCachedData(status int, headers http.Header) bool {
	if status == http.StatusNotModified {
		return true
	}

	if respETag := headers.Get("ETag"); respETag != "" && respETag != e.ETag {
		return false
	}
	if respLM := headers.Get("Last-Modified"); respLM != "" {
		respTime, err1 := http.ParseTime(respLM)
		entryTime, err2 := http.ParseTime(e.LastModified)
		if err1 == nil && err2 == nil && respTime.After(entryTime) {
			return false
		}
	}
	return true
}

// cacheable reports whether a response may be stored: 2xx/3xx only,
// and not explicitly opted out via no-store.
func cacheable(status int, headers http.Header) bool {
	if status < 200 || status >= 400 {
		return false
	}
	if hasDirective(headers.Get("Cache-Control"), "no-store") {
		return false
	}
	return true
}

// freshnessHorizon computes the absolute expiry for a freshly stored
// entry, or (zero, false) when none is computable — the entry is then
// stored with must_revalidate=true and no expiry.
func freshnessHorizon(headers http.Header) (time.Time, bool) {
	if maxAge, ok := maxAgeSeconds(headers.Get("Cache-Control")); ok {
		return time.Now().Add(time.Duration(maxAge) * time.Second), true
	}
	if exp := headers.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func hasDirective(cacheControl, directive string) bool {
	for _, part := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(part), directive) {
			return true
		}
	}
	return false
}

func maxAgeSeconds(cacheControl string) (int, bool) {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return seconds, true
		}
	}
	return 0, false
}
