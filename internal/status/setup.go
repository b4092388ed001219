package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chatapp-gateway/internal/archive"
	"chatapp-gateway/internal/gateway"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"chatapp-gateway/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Source is the live client the API reports on.
type Source interface {
	Status() gateway.Status
	Ping() (time.Duration, bool)
	Ready() bool
	User() *models.User
	Store() *store.Store
}

// History serves archived messages, nil when archiving is off.
type History interface {
	Messages(ctx context.Context, channelID snowflake.ID, limit int) ([]archive.ArchivedMessage, error)
}

type Server struct {
	sugar   *zap.SugaredLogger
	source  Source
	history History
	router  chi.Router
}

func New(sugar *zap.SugaredLogger, source Source, history History, logRequests bool) *Server {
	s := &Server{
		sugar:   sugar,
		source:  source,
		history: history,
	}

	r := chi.NewRouter()
	if logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.GetStatus)

		api.Route("/servers", func(r chi.Router) {
			r.Get("/", s.GetServerList)
			r.Get("/{serverID}", s.GetServer)
			r.Get("/{serverID}/channels/{channelID}/messages", s.GetMessageList)
		})

		if history != nil {
			api.Get("/archive/channels/{channelID}/messages", s.GetArchivedMessageList)
		}
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API on address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	s.sugar.Infof("Status API is running on http://%s", address)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
