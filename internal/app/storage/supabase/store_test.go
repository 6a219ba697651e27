package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/services/users"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/query"
)

func mustUserQuery(t *testing.T, raw string) query.Query {
	t.Helper()
	params, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := users.Schema.Parse(params)
	require.NoError(t, err)
	return q
}

func newTestStore(t *testing.T, handler http.Handler) *Store {
	t.Helper()
	client, _ := newTestClient(t, handler)
	return NewStore(client, nil)
}

func TestCreateAdminRoundTrip(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/v1/admins", r.URL.Path)
		require.Equal(t, preferRepresentation, r.Header.Get("Prefer"))

		var row adminRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.NotEmpty(t, row.ID, "IDs are assigned client-side")
		assert.False(t, row.CreatedAt.IsZero())

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]adminRow{row})
	}))

	created, err := store.CreateAdmin(context.Background(), admin.Admin{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// PostgREST answers an unmatched PATCH with an empty representation.
		w.Write([]byte(`[]`))
	}))

	_, err := store.UpdateAdmin(context.Background(), admin.Admin{ID: "missing"})
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateUserCollateralStaleVsMissing(t *testing.T) {
	stored := userRow{ID: "u1", EthAddress: "0xAAA", CollateralDeposited: 75,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			// The conditional filter matched nothing.
			w.Write([]byte(`[]`))
		case http.MethodGet:
			if stored.ID == "" {
				w.WriteHeader(http.StatusNotAcceptable)
				return
			}
			json.NewEncoder(w).Encode(stored)
		}
	})
	store := newTestStore(t, handler)

	// The row exists with a different balance: the observation was stale.
	_, err := store.UpdateUserCollateral(context.Background(), "u1", 50, 60)
	assert.ErrorIs(t, err, storage.ErrStale)

	// The row is gone entirely: not found.
	stored.ID = ""
	_, err = store.UpdateUserCollateral(context.Background(), "u1", 50, 60)
	assert.True(t, errors.IsNotFound(err))
}

func TestListUsersEncodesQuery(t *testing.T) {
	var gotQuery string
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))

	q := mustUserQuery(t, "currentEstateCost[gte]=100&limit=5&page=2")
	_, err := store.ListUsers(context.Background(), q)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "current_estate_cost=gte.100")
	assert.Contains(t, gotQuery, "order=created_at.desc")
	assert.Contains(t, gotQuery, "limit=5")
	assert.Contains(t, gotQuery, "offset=5")
}
