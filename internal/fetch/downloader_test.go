package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchRespectsRobotsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		w.Write([]byte(strings.Repeat("hello world ", 50)))
	}))
	defer srv.Close()

	d := New()
	_, err := d.Fetch(context.Background(), srv.URL+"/page")
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ReasonRobotsDisallowed, fe.Reason)
}

func TestFetchRejectsInvalidMime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := New()
	_, err := d.Fetch(context.Background(), srv.URL+"/page")
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ReasonInvalidMime, fe.Reason)
}

func TestFetchSucceedsAndCleansText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><style>.a{}</style></head><body><script>evil()</script><p>` +
			strings.Repeat("Welcome to our venue. ", 20) + `</p></body></html>`))
	}))
	defer srv.Close()

	d := New()
	pf, err := d.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, pf.StatusCode)
	require.NotContains(t, pf.CleanText, "evil()")
	require.True(t, PassesQualityGate(pf.CleanText))
}

func TestQualityGateRejectsThinContent(t *testing.T) {
	require.False(t, PassesQualityGate("short"))
	require.False(t, PassesQualityGate(strings.Repeat("x", 300)+" coming soon"))
	require.True(t, PassesQualityGate(strings.Repeat("word ", 100)))
}
