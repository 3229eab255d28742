package spa

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "main.js"), []byte("console.log(1)"), 0o644))
	return dir
}

func get(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func TestStripAPIPrefix(t *testing.T) {
	cases := map[string]string{
		"/api":             "/",
		"/api/":            "/",
		"/api/todos/":      "/todos/",
		"/api/todos/3":     "/todos/3",
		"/api/health/live": "/health/live",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripAPIPrefix(in), in)
	}
}

func TestServesFilesAndFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := New(writeApp(t), "http://127.0.0.1:1")
	require.NoError(t, err)
	r := srv.Router()

	rec := get(t, r, http.MethodGet, "/assets/main.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	for _, p := range []string{"/", "/todos/12/edit", "/assets"} {
		rec = get(t, r, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "<html>app</html>", rec.Body.String(), p)
	}

	rec = get(t, r, http.MethodGet, "/../../etc/passwd", nil)
	assert.NotContains(t, rec.Body.String(), "root:")

	rec = get(t, r, http.MethodPost, "/somewhere", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// serve fronts the router with a real listener for the proxied cases.
func serve(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	front := httptest.NewServer(srv.Router())
	t.Cleanup(front.Close)
	return front
}

func TestProxiesAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var gotPath, gotQuery, gotKey, gotHost, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		gotKey = r.Header.Get("X-API-Key")
		gotHost = r.Host
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer backend.Close()

	srv, err := New(writeApp(t), backend.URL)
	require.NoError(t, err)
	front := serve(t, srv)

	req, err := http.NewRequest(http.MethodPost, front.URL+"/api/todos/?limit=5", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "k")
	resp, err := front.Client().Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":1}`, string(body))
	assert.Equal(t, "/todos/", gotPath)
	assert.Equal(t, "limit=5", gotQuery)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, strings.TrimPrefix(backend.URL, "http://"), gotHost)
	assert.Equal(t, `{"title":"x"}`, gotBody)

	resp, err = front.Client().Get(front.URL + "/api")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/", gotPath)
}

func TestProxyBackendDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	srv, err := New(writeApp(t), url)
	require.NoError(t, err)
	front := serve(t, srv)

	resp, err := front.Client().Get(front.URL + "/api/todos/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "connect")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), "http://localhost:8000")
	assert.Error(t, err)

	_, err = New(t.TempDir(), "localhost:8000")
	assert.Error(t, err)
}
