package holidays

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday_NoKeyReturnsNothing(t *testing.T) {
	c := New(Options{})

	names, err := c.Today(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestToday_FetchAndDailyCache(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "BD", r.URL.Query().Get("country"))
		assert.Equal(t, "2026", r.URL.Query().Get("year"))
		fmt.Fprint(w, `{"response":{"holidays":[{"name":"Independence Day"}]}}`)
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL})
	day := time.Date(2026, 3, 26, 8, 0, 0, 0, time.UTC)

	names, err := c.Today(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, []string{"Independence Day"}, names)

	// same day, later slot, served from cache
	_, err = c.Today(context.Background(), day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
