package engine

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrubber/models"
)

func TestFetchSendsHeadersAndChainsReferer(t *testing.T) {
	var referers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referers = append(referers, r.Header.Get("Referer"))
		require.Equal(t, DefaultHeaders["User-Agent"], r.Header.Get("User-Agent"))
		require.Equal(t, "1", r.Header.Get("DNT"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>" + r.URL.Path + "</html>"))
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{Timeout: 5 * time.Second})

	first := srv.URL + "/first"
	res, sess, err := e.Fetch(context.Background(), Session{}, first)
	require.NoError(t, err)
	require.Equal(t, "<html>/first</html>", res.HTML)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "http", res.EngineName)
	require.Equal(t, first, sess.Referer)

	_, sess, err = e.Fetch(context.Background(), sess, srv.URL+"/second")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/second", sess.Referer)

	require.Equal(t, []string{"", first}, referers)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{})
	start := Session{Referer: "https://example.com/prev"}

	res, sess, err := e.Fetch(context.Background(), start, srv.URL+"/missing")
	require.Error(t, err)
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Equal(t, models.ErrCodeTransport, models.CodeOf(err))
	require.Equal(t, start, sess, "failed fetch must not advance the referer")
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{Timeout: 50 * time.Millisecond})
	_, _, err := e.Fetch(context.Background(), Session{}, srv.URL)
	require.Error(t, err)
	require.Equal(t, models.ErrCodeTransportTimeout, models.CodeOf(err))
	require.True(t, models.IsTransport(err))
}

func TestFetchDecodesGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("<p>compressed</p>"))
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	res, _, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), Session{}, srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<p>compressed</p>", res.HTML)
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 64))
	}))
	defer srv.Close()

	_, sess, err := NewHTTPEngine(HTTPOptions{MaxBodyBytes: 63}).Fetch(context.Background(), Session{}, srv.URL)
	require.ErrorIs(t, err, ErrBodyTooLarge)
	require.Equal(t, models.ErrCodeTransport, models.CodeOf(err))
	require.Empty(t, sess.Referer)

	res, _, err := NewHTTPEngine(HTTPOptions{MaxBodyBytes: 64}).Fetch(context.Background(), Session{}, srv.URL)
	require.NoError(t, err)
	require.Len(t, res.HTML, 64)
}

func TestHeaderOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		require.Equal(t, "yes", r.Header.Get("X-Extra"))
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{Headers: map[string]string{
		"User-Agent": "custom-agent",
		"X-Extra":    "yes",
	}})
	_, _, err := e.Fetch(context.Background(), Session{}, srv.URL)
	require.NoError(t, err)
}
