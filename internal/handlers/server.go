// internal/handlers/server.go
package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/doomtemple/server/internal/config"
	"github.com/doomtemple/server/internal/game"
	"github.com/doomtemple/server/internal/middleware"
)

// Server bundles the HTTP surface: the websocket game endpoint, a health
// probe and the static client assets.
type Server struct {
	log      *logrus.Logger
	cfg      *config.Config
	registry *game.Registry
}

func NewServer(cfg *config.Config, logger *logrus.Logger) *Server {
	return &Server{
		log:      logger,
		cfg:      cfg,
		registry: game.NewRegistry(logger),
	}
}

// Routes assembles the HTTP handler tree with request logging applied.
func (srv *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.Handle("/api/", srv.GameWSHandler())
	if srv.cfg.Server.StaticPath != "" {
		mux.Handle("/", srv.StaticHandler())
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("to the temple of doom\n"))
		})
	}
	return middleware.LogMiddleware(srv.log)(mux)
}

// HealthHandler answers liveness probes.
func (srv *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StaticHandler serves the bundled client. Unknown paths fall back to the
// index document so client-side routing keeps working after a reload.
func (srv *Server) StaticHandler() http.Handler {
	root := srv.cfg.Server.StaticPath
	index := filepath.Join(root, srv.cfg.Server.Index)
	fs := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(root, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
