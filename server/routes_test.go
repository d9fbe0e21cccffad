package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/editor"
	"github.com/meikuraledutech/flow/memory"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newApp(editor.New(), memory.New())
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func TestFlowLifecycle(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodPost, "/flows", `{"name":"main"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decode[flow.Flow](t, body)
	assert.Equal(t, "main", created.Name)

	status, _ = call(t, app, http.MethodPost, "/flows", `{"name":"main"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPost, "/flows", `{}`)
	assert.Equal(t, http.StatusBadRequest, status, "name is required")

	status, body = call(t, app, http.MethodGet, "/dirty", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"main"}, decode[[]string](t, body))

	status, body = call(t, app, http.MethodPost, "/save", "")
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, app, http.MethodGet, "/dirty", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]string](t, body))

	status, body = call(t, app, http.MethodPut, "/flows/main/name", `{"name":"hello"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, app, http.MethodGet, "/selection/flow", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", decode[flow.Flow](t, body).Name)

	status, _ = call(t, app, http.MethodDelete, "/flows/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNodeEditingAndUndo(t *testing.T) {
	app := newTestApp(t)
	call(t, app, http.MethodPost, "/flows", `{"name":"main"}`)

	status, body := call(t, app, http.MethodPost, "/flows/main/nodes", `{"name":"ask","next":[{"condition":"true","node":"END"}]}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	id := decode[map[string]string](t, body)["id"]
	require.NotEmpty(t, id)

	status, _ = call(t, app, http.MethodPut, "/flows/main/nodes/"+id+"/next/0", `{"target":"entry"}`)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodPut, "/flows/main/nodes/"+id+"/next/5", `{"target":"entry"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodGet, "/flows/main", "")
	require.Equal(t, http.StatusOK, status)
	f := decode[flow.Flow](t, body)
	require.Len(t, f.Links, 1)
	assert.Equal(t, "entry", f.Node(id).Next[0].Node)

	status, body = call(t, app, http.MethodPut, "/selection", `{"node":"`+id+`","action":"move"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = call(t, app, http.MethodPost, "/clipboard/copy", "")
	require.Equal(t, http.StatusNoContent, status)
	status, body = call(t, app, http.MethodPost, "/clipboard/paste", "")
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = call(t, app, http.MethodGet, "/selection/node", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ask-copy", decode[flow.Node](t, body).Name)

	status, body = call(t, app, http.MethodPost, "/undo", "")
	require.Equal(t, http.StatusOK, status)
	undo := decode[struct {
		Changed bool                 `json:"changed"`
		History editor.HistoryStatus `json:"history"`
	}](t, body)
	assert.True(t, undo.Changed)
	assert.True(t, undo.History.CanRedo)

	status, body = call(t, app, http.MethodPost, "/redo", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"changed":true`)

	status, _ = call(t, app, http.MethodDelete, "/flows/main/nodes/"+id, "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestFlowNamesOutliveTheirRequest(t *testing.T) {
	app := newTestApp(t)
	call(t, app, http.MethodPost, "/flows", `{"name":"main"}`)

	status, body := call(t, app, http.MethodPost, "/flows/main/nodes", `{"name":"ask"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	id := decode[map[string]string](t, body)["id"]

	// Later requests reuse the buffers the path params were read from.
	status, body = call(t, app, http.MethodPut, "/selection", `{"node":"`+id+`"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	call(t, app, http.MethodGet, "/history", "")

	status, body = call(t, app, http.MethodGet, "/flows", "")
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Flows []string `json:"flows"`
		Dirty []string `json:"dirty"`
	}](t, body)
	assert.Equal(t, []string{"main"}, list.Flows)
	assert.Equal(t, []string{"main"}, list.Dirty)

	status, _ = call(t, app, http.MethodGet, "/flows/main", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestFlowNamedCurrentIsReachable(t *testing.T) {
	app := newTestApp(t)
	call(t, app, http.MethodPost, "/flows", `{"name":"current"}`)

	status, body := call(t, app, http.MethodGet, "/flows/current", "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "current", decode[flow.Flow](t, body).Name)
}

func TestPreconditionStatus(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodPost, "/clipboard/copy", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body := call(t, app, http.MethodPost, "/undo", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"changed":false`)

	status, _ = call(t, app, http.MethodPut, "/flows/main/nodes/x/next/abc", `{"target":"y"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoad(t *testing.T) {
	store := memory.New()
	c, err := flow.Collection{}.CreateFlow("stored")
	require.NoError(t, err)
	require.NoError(t, store.SaveAllFlows(t.Context(), c))

	app := newApp(editor.New(), store)
	status, body := call(t, app, http.MethodPost, "/load", "")
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, app, http.MethodGet, "/flows", "")
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Flows  []string `json:"flows"`
		Dirty  []string `json:"dirty"`
		Active string   `json:"active"`
	}](t, body)
	assert.Equal(t, []string{"stored"}, list.Flows)
	assert.Empty(t, list.Dirty)
	assert.Equal(t, "stored", list.Active)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(flow.ErrNodeNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(flow.ErrBusy))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(flow.ErrClipboardEmpty))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}
