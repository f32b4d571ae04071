package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flysmart/config"
	attemptsapi "github.com/Domenick1991/flysmart/internal/api/attempts_service_api"
	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Registrar is implemented by every HTTP handler group.
type Registrar interface {
	Register(router *gin.RouterGroup)
}

type Route struct {
	Prefix  string
	Handler Registrar
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	shutdown   time.Duration
}

// NewRouter mounts every route group under /api/v1 and adds a liveness check.
func NewRouter(routes ...Route) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	for _, r := range routes {
		r.Handler.Register(api.Group(r.Prefix))
	}
	return router
}

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, router http.Handler, attempts attempt.AttemptUseCase) error {
	s := newServers(cfg, router, attempts)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("http listening on %s, grpc on %s", cfg.HTTP.Address, cfg.GRPC.Address)

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, router http.Handler, attempts attempt.AttemptUseCase) *Servers {
	grpcSrv := grpc.NewServer()
	attemptsapi.RegisterAttemptsServiceServer(grpcSrv, attemptsapi.NewServer(attempts))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := time.Duration(cfg.HTTP.ShutdownSeconds) * time.Second
	if shutdown <= 0 {
		shutdown = 5 * time.Second
	}
	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		shutdown:   shutdown,
	}
}
