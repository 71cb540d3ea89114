// Package handlers provides the gRPC and HTTP servers of the company
// service. The gRPC server carries the health service; the HTTP server
// serves the company REST routes on a grpc-gateway mux whose /healthz
// endpoint is backed by that health service.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gartstein/companydir/internal/company/auth"
	"github.com/gartstein/companydir/internal/company/blob"
	"github.com/gartstein/companydir/internal/company/blob/disk"
	"github.com/go-chi/cors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the company service reports health under.
const ServiceName = "company"

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	healthConn   *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// HTTPOptions configures the HTTP side of the server.
type HTTPOptions struct {
	JWTSecret   string
	CORSOrigins []string
	// UploadDir, when set, is served read-only under UploadURL.
	UploadDir string
	UploadURL string
}

// ServeFrom exposes the objects of a disk blob store at the URL prefix its
// references use.
func (o *HTTPOptions) ServeFrom(store *disk.Store) {
	o.UploadDir = store.Root()
	o.UploadURL = store.PublicPrefix()
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		health:       health.NewServer(),
		logger:       logger,
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// RegisterHTTPGateway sets up the HTTP mux with the company routes, the
// health endpoint and the middleware chain.
func (s *Server) RegisterHTTPGateway(_ context.Context, dialOpts []grpc.DialOption, h *CompanyHandler, opts HTTPOptions) error {
	conn, err := grpc.NewClient("localhost"+s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to dial health service: %w", err)
	}
	s.healthConn = conn

	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	if err := h.Register(mux); err != nil {
		return err
	}
	if opts.UploadDir != "" {
		pattern := opts.UploadURL + "/{dir}/{name}"
		if err := mux.HandlePath(http.MethodGet, pattern, serveUploads(opts.UploadDir)); err != nil {
			return fmt.Errorf("failed to register %s: %w", pattern, err)
		}
	}

	// Wrap the mux with auth, logging and CORS middleware
	var handler http.Handler = auth.HTTPMiddleware(mux, opts.JWTSecret)
	handler = requestLogger(handler, s.logger.Named("http"))
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)

	s.httpServer.Handler = handler
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// serveUploads serves files written by the disk blob store.
func serveUploads(root string) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		key := pathParams["dir"] + "/" + pathParams["name"]
		if err := blob.ValidateKey(key); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(root, filepath.FromSlash(key)))
	}
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	if s.healthConn != nil {
		if err := s.healthConn.Close(); err != nil {
			s.logger.Error("Health client close error", zap.Error(err))
		}
	}

	s.logger.Info("Servers stopped")
}
