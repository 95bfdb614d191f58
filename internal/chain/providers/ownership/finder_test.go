package ownership

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlead/internal/chain/providers"
	"chainlead/internal/platform/config"
)

func newFinder(t *testing.T, logs io.Writer, h http.HandlerFunc) *Finder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := providers.NewClient(providers.PersonSearch, config.ProviderConfig{BaseURL: srv.URL, Timeout: time.Second})
	return New(client, slog.New(slog.NewTextHandler(logs, nil)))
}

const twoProperties = `{"properties":[
	{"ownerName":"Jane Doe","address":{"street":"12 OAK ST","city":"Austin","state":"TX","zip":"78701"},
	 "mailingAddress":"12 Oak St, Austin, TX 78701","propertyAddress":"12 Oak St, Austin, TX 78701"},
	{"ownerName":"Jane M Doe","address":{"street":"9 Elm St","city":"Dallas","state":"TX","zip":"75201"},
	 "mailingAddress":"12 Oak St, Austin, TX 78701","lastSaleDate":"2015-06-01"},
	{"ownerName":"Jane Doe","address":{"city":"Nowhere"}}
]}`

func TestFind(t *testing.T) {
	t.Run("excludes the purchased property case-insensitively", func(t *testing.T) {
		f := newFinder(t, io.Discard, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, propertiesPath, r.URL.Path)
			assert.Equal(t, "Jane Doe", r.URL.Query().Get("name"))
			_, _ = w.Write([]byte(twoProperties))
		})

		got := f.Find(context.Background(), " Jane Doe ", "12 Oak St")
		require.Len(t, got, 1)
		assert.Equal(t, "9 Elm St", got[0].Address.Street)
		assert.Equal(t, "Jane M Doe", got[0].OwnerName)
		assert.Equal(t, "9 Elm St, Dallas, TX 75201", got[0].PropertyAddress, "missing property address falls back to the parts")
		require.NotNil(t, got[0].LastSaleDate)
	})

	t.Run("empty exclude keeps everything with a street", func(t *testing.T) {
		f := newFinder(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(twoProperties))
		})
		assert.Len(t, f.Find(context.Background(), "Jane Doe", ""), 2)
	})

	t.Run("api failure yields no candidates", func(t *testing.T) {
		var logs bytes.Buffer
		f := newFinder(t, &logs, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		got := f.Find(context.Background(), "Jane Doe", "12 Oak St")
		assert.Empty(t, got)
		assert.Contains(t, logs.String(), "status_code=429")
		assert.Contains(t, logs.String(), "category=rate_limited")
	})

	t.Run("blank owner skips the call", func(t *testing.T) {
		f := newFinder(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("provider must not be called")
		})
		assert.Empty(t, f.Find(context.Background(), "   ", ""))
	})
}
