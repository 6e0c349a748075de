package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":2000,"type":"success","message":"ok","result":{"status":"ok"}}`)
	})
	mux.HandleFunc("/api/v1/equipment/eq-1/transfer", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"to_room_id":"same"`) {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"code":40900,"type":"warning","message":"no-op: equipment is already in room ICU","result":null}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":2000,"type":"success","message":"Moved Monitor from ICU to ER",
			"result":{"history_id":"h-1","old_code":"HOS-ICU-0001","new_code":"HOS-ER-0001","summary":"Moved Monitor from ICU to ER"}}`)
	})
	mux.HandleFunc("/api/v1/equipment/eq-1/history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":2000,"type":"success","message":"ok",
			"result":{"items":[{"history_id":"h-1","from_room_name":"ICU","to_room_name":"ER","new_code":"HOS-ER-0001"}],"total":1}}`)
	})
	mux.HandleFunc("/api/v1/equipment/missing/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":-1,"type":"error","message":"equipment_id missing: not found","result":null}`)
	})
	mux.HandleFunc("/api/v1/import", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("room_id") != "room-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "xlsx-bytes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"code":2000,"type":"success","message":"ok",
			"result":{"total":2,"imported_count":1,"failed_count":1,"errors":[{"row":3,"message":"device name is required"}],"codes":["HOS-ICU-0001"]}}`)
	})
	mux.HandleFunc("/api/v1/organizations/org-1/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=inventory-Hospital.xlsx")
		_, _ = io.WriteString(w, "workbook")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Transfer(t *testing.T) {
	srv := newFakeServer(t)
	c := New(srv.URL, zap.NewNop())
	ctx := context.Background()

	res, err := c.Transfer(ctx, "eq-1", "room-er", "")
	require.NoError(t, err)
	assert.Equal(t, "HOS-ER-0001", res.NewCode)
	assert.Equal(t, "Moved Monitor from ICU to ER", res.Summary)

	_, err = c.Transfer(ctx, "eq-1", "same", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoOp))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestClient_History(t *testing.T) {
	srv := newFakeServer(t)
	c := New(srv.URL, zap.NewNop())

	rows, err := c.History(context.Background(), "eq-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ICU", rows[0].FromRoomName)

	_, err = c.History(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_ImportExport(t *testing.T) {
	srv := newFakeServer(t)
	c := New(srv.URL, zap.NewNop())
	ctx := context.Background()

	res, err := c.Import(ctx, "org-1", "room-1", "equipment.xlsx", strings.NewReader("xlsx-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	data, name, err := c.Export(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))
	assert.Equal(t, "inventory-Hospital.xlsx", name)
}

func TestClient_WaitReady(t *testing.T) {
	srv := newFakeServer(t)
	c := New(srv.URL, zap.NewNop())
	require.NoError(t, c.Health(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.WaitReady(ctx, 10*time.Millisecond))

	dead := New("http://127.0.0.1:1", zap.NewNop())
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	assert.Error(t, dead.WaitReady(ctx2, 10*time.Millisecond))
}
