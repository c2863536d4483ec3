package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-tracker/internal/handler"
	"github.com/sakif/life-tracker/internal/model"
)

func collectionRoutes(e *testEnv, userID string) http.Handler {
	h := handler.NewCollectionHandler(e.records, e.resp)
	return newRouter(userID, func(r chi.Router) {
		r.Get("/{collection}", h.HandleList)
		r.Post("/{collection}", h.HandleCreate)
		r.Get("/{collection}/{id}", h.HandleGet)
		r.Put("/{collection}/{id}", h.HandleReplace)
		r.Delete("/{collection}/{id}", h.HandleDelete)
	})
}

func TestCollectionHandler_CRUD(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	routes := collectionRoutes(e, alice.ID)

	rr := do(routes, http.MethodPost, "/todos", `{"id":"d1","text":"Buy milk","userId":"mallory"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Todo](t, rr)
	assert.Equal(t, alice.ID, created.UserID, "owner comes from the token, not the body")

	rr = do(routes, http.MethodGet, "/todos/d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Buy milk", decode[model.Todo](t, rr).Text)

	rr = do(routes, http.MethodPut, "/todos/d1", `{"text":"Buy oat milk","completed":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	replaced := decode[model.Todo](t, rr)
	assert.Equal(t, "d1", replaced.ID)
	assert.True(t, replaced.Completed)

	rr = do(routes, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]model.Todo](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Buy oat milk", list[0].Text)

	rr = do(routes, http.MethodDelete, "/todos/d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[handler.SuccessResponse](t, rr).Success)

	rr = do(routes, http.MethodDelete, "/todos/d1", "")
	assert.Equal(t, http.StatusOK, rr.Code, "delete is idempotent")

	rr = do(routes, http.MethodGet, "/todos/d1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCollectionHandler_EmptyListIsArray(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")

	rr := do(collectionRoutes(e, alice.ID), http.MethodGet, "/journal", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCollectionHandler_OwnersAreIsolated(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	rr := do(collectionRoutes(e, alice.ID), http.MethodPost, "/expenses",
		`{"id":"e1","amount":12.5,"category":"Food","date":"2026-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	asBob := collectionRoutes(e, bob.ID)
	assert.Equal(t, http.StatusNotFound, do(asBob, http.MethodGet, "/expenses/e1", "").Code)
	assert.Equal(t, http.StatusNotFound,
		do(asBob, http.MethodPut, "/expenses/e1", `{"amount":1,"category":"Food"}`).Code)
	assert.JSONEq(t, `[]`, do(asBob, http.MethodGet, "/expenses", "").Body.String())
}

func TestCollectionHandler_Errors(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	routes := collectionRoutes(e, alice.ID)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"unknown collection", http.MethodPost, "/quotes", `{}`, http.StatusNotFound, ""},
		{"malformed body", http.MethodPost, "/tasks", `{"name":`, http.StatusBadRequest, ""},
		{"invalid record", http.MethodPost, "/tasks", `{"category":"habit"}`, http.StatusBadRequest, "name"},
		{"log for unknown task", http.MethodPost, "/logs", `{"taskId":"ghost"}`, http.StatusBadRequest, "taskId"},
		{"replace missing", http.MethodPut, "/todos/nope", `{"text":"x"}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(routes, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantField, decode[handler.ErrorResponse](t, rr).Field)
		})
	}
}

func TestCollectionHandler_DuplicateIDConflicts(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	routes := collectionRoutes(e, alice.ID)

	require.Equal(t, http.StatusCreated, do(routes, http.MethodPost, "/todos", `{"id":"d1","text":"a"}`).Code)
	rr := do(routes, http.MethodPost, "/todos", `{"id":"d1","text":"b"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCollectionHandler_CompletedLogAwardsPoints(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	routes := collectionRoutes(e, alice.ID)

	require.Equal(t, http.StatusCreated,
		do(routes, http.MethodPost, "/tasks", `{"id":"t1","name":"Read","category":"habit"}`).Code)
	rr := do(routes, http.MethodPost, "/logs",
		`{"taskId":"t1","date":"2026-03-14","completed":true,"images":["data:image/png;base64,AA=="]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"data:image/png;base64,AA=="}, decode[model.TaskLog](t, rr).Images)

	again := do(routes, http.MethodPost, "/logs", `{"taskId":"t1","date":"2026-03-14","completed":true}`)
	assert.Equal(t, http.StatusConflict, again.Code, "one completion per task and day")

	me, err := e.users.Me(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), me.Points)
}
