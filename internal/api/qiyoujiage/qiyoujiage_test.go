package qiyoujiage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelwatch/china-fuel-scraper/internal/models"
)

func TestFetchRegion_Success(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>listing</html>"))
	}))
	defer srv.Close()

	source := NewWithOptions(zerolog.Nop(), srv.URL, time.Second)

	body, err := source.FetchRegion(context.Background(), "beijing")
	require.NoError(t, err)

	assert.Equal(t, "<html>listing</html>", string(body))
	assert.Equal(t, "/beijing.shtml", gotPath)
	assert.NotEmpty(t, gotUA)
}

func TestFetchRegion_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewWithOptions(zerolog.Nop(), srv.URL, time.Second)

	_, err := source.FetchRegion(context.Background(), "beijing")
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrKindHTTPStatus, se.Kind)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestFetchRegion_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	source := NewWithOptions(zerolog.Nop(), srv.URL, 30*time.Millisecond)

	_, err := source.FetchRegion(context.Background(), "beijing")
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrKindTimeout, se.Kind)
}

func TestFetchRegion_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	source := NewWithOptions(zerolog.Nop(), srv.URL, time.Second)

	_, err := source.FetchRegion(context.Background(), "beijing")
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrKindTransport, se.Kind)
}

func TestHost(t *testing.T) {
	source := New(zerolog.Nop())
	assert.Equal(t, "www.qiyoujiage.com", source.Host())
	assert.Equal(t, SourceName, source.Name())
}
