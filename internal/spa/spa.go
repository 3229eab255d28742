// Package spa serves a prebuilt single-page app and forwards /api calls to
// the todo service.
package spa

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"

	"github.com/gin-gonic/gin"
)

const APIPrefix = "/api"

type Server struct {
	dir   string
	proxy *httputil.ReverseProxy
}

// New serves files from dir and proxies APIPrefix to backend.
func New(dir, backend string) (*Server, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spa dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spa dir %s is not a directory", dir)
	}
	target, err := url.Parse(backend)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", backend)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = StripAPIPrefix(pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 10 * time.Second,
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WithContext(r.Context()).Error("proxy error", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(err.Error()))
		},
	}
	return &Server{dir: dir, proxy: proxy}, nil
}

// StripAPIPrefix maps /api/todos to /todos and a bare /api to /.
func StripAPIPrefix(p string) string {
	p = strings.TrimPrefix(p, APIPrefix)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Router returns the engine serving both the app and the proxy.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.NoRoute(s.handle)
	return r
}

func (s *Server) handle(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, APIPrefix) {
		s.proxy.ServeHTTP(c.Writer, c.Request)
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
		return
	}

	// unknown paths belong to the client-side router
	name := filepath.Join(s.dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		c.File(name)
		return
	}
	c.File(filepath.Join(s.dir, "index.html"))
}
