package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dbstatic/internal/apperr"
	"dbstatic/internal/db"
)

// memoryStore is an in-memory ValueStore.
type memoryStore struct {
	mu        sync.Mutex
	values    []int32
	insertErr error
	listErr   error
}

func (m *memoryStore) Insert(_ context.Context, n int32) (pgconn.CommandTag, error) {
	if m.insertErr != nil {
		return pgconn.CommandTag{}, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, n)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *memoryStore) List(context.Context) ([]int32, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int32{}, m.values...), nil
}

func newTestServer(t *testing.T, cfg Config, values ValueStore) *Server {
	t.Helper()
	if cfg.StaticDir == "" {
		cfg.StaticDir = t.TempDir()
	}
	return NewServer(cfg, values, zap.NewNop())
}

func do(s *Server, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.R.ServeHTTP(rec, req)
	return rec
}

func TestInsertValue(t *testing.T) {
	store := &memoryStore{}
	s := newTestServer(t, Config{}, store)

	rec := do(s, http.MethodPost, "/db/insert/42")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INSERT 0 1", rec.Body.String())
	assert.Equal(t, []int32{42}, store.values)
}

func TestInsertValueJSON(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{})

	rec := do(s, http.MethodPost, "/db/insert/-17", "Accept", "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp insertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INSERT 0 1", resp.Command)
	assert.EqualValues(t, 1, resp.RowsAffected)
}

func TestInsertValueRejectsMalformedNumber(t *testing.T) {
	tests := []string{"abc", "1.5", "2147483648", "-2147483649", "0x10", "%20"}

	for _, number := range tests {
		t.Run(number, func(t *testing.T) {
			store := &memoryStore{}
			s := newTestServer(t, Config{}, store)

			rec := do(s, http.MethodPost, "/db/insert/"+number)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "signed 32-bit integer")
			assert.Empty(t, store.values)
		})
	}
}

func TestInsertValueRejectsMalformedNumberJSON(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{})

	rec := do(s, http.MethodPost, "/db/insert/abc", "Accept", "application/json")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperr.TypeValidation, resp.Type)
	assert.Equal(t, "abc", resp.Context["number"])
}

func TestInsertValueBoundaries(t *testing.T) {
	store := &memoryStore{}
	s := newTestServer(t, Config{}, store)

	for _, number := range []string{"2147483647", "-2147483648", "+5", "0"} {
		rec := do(s, http.MethodPost, "/db/insert/"+number)
		assert.Equal(t, http.StatusOK, rec.Code, number)
	}
	assert.Equal(t, []int32{2147483647, -2147483648, 5, 0}, store.values)
}

func TestInsertValueDatabaseFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "query error", err: errors.New("relation \"aa\" does not exist"), wantStatus: http.StatusInternalServerError},
		{name: "pool timeout", err: fmt.Errorf("failed to insert value: %w", db.ErrPoolTimeout), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, &memoryStore{insertErr: tt.err})

			rec := do(s, http.MethodPost, "/db/insert/1")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "Err", rec.Body.String())
		})
	}
}

func TestReadValues(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{values: []int32{1, 2, 3}})

	rec := do(s, http.MethodGet, "/db/read")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[1, 2, 3]", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestReadValuesEmpty(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{})

	rec := do(s, http.MethodGet, "/db/read")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	rec = do(s, http.MethodGet, "/db/read", "Accept", "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestReadValuesJSON(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{values: []int32{4, -4}})

	rec := do(s, http.MethodGet, "/db/read", "Accept", "application/json")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[4, -4]", rec.Body.String())
}

func TestReadValuesDatabaseFailure(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{listErr: errors.New("connection reset")})

	rec := do(s, http.MethodGet, "/db/read")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	rec = do(s, http.MethodGet, "/db/read", "Accept", "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperr.TypeInternal, resp.Type)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestInsertThenReadContainsValue(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{})

	for _, n := range []string{"42", "42", "-1"} {
		require.Equal(t, http.StatusOK, do(s, http.MethodPost, "/db/insert/"+n).Code)
	}

	rec := do(s, http.MethodGet, "/db/read")
	assert.Equal(t, "[42, 42, -1]", rec.Body.String())
}

func TestDatabaseRoutesDisabledWithoutStore(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/db/read").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/db/insert/1").Code)
}

func TestWrongMethodIsNotRouted(t *testing.T) {
	s := newTestServer(t, Config{}, &memoryStore{})

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/db/insert/1").Code)
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "[]", formatValues(nil))
	assert.Equal(t, "[7]", formatValues([]int32{7}))
	assert.Equal(t, "[1, -2, 3]", formatValues([]int32{1, -2, 3}))
}
