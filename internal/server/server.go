package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/goto/salt/log"
	handlersv1 "github.com/goto/sift/internal/server/v1"
	"github.com/goto/sift/pkg/grpc_interceptor"
	"github.com/goto/sift/pkg/statsd"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/newrelic/go-agent/v3/integrations/nrgrpc"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	_ "google.golang.org/grpc/encoding/gzip" // Install the gzip compressor
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const gracePeriod = 5 * time.Second

type Config struct {
	Host string `yaml:"host" mapstructure:"host" default:"0.0.0.0"`
	Port int    `yaml:"port" mapstructure:"port" default:"8080"`

	// Header carrying the request id; generated when the caller sends none
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header" default:"X-Request-Id"`

	// GRPC Config
	GRPC GRPCConfig `yaml:"grpc" mapstructure:"grpc"`
}

func (cfg Config) addr() string     { return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port) }
func (cfg Config) grpcAddr() string { return fmt.Sprintf("%s:%d", cfg.Host, cfg.GRPC.Port) }

type GRPCConfig struct {
	Port           int `yaml:"port" mapstructure:"port" default:"8081"`
	MaxRecvMsgSize int `yaml:"max_recv_msg_size" mapstructure:"max_recv_msg_size" default:"33554432"`
	MaxSendMsgSize int `yaml:"max_send_msg_size" mapstructure:"max_send_msg_size" default:"33554432"`
}

type Deps struct {
	NRApp          *newrelic.Application
	StatsDReporter *statsd.Reporter
	Searchers      []handlersv1.Searcher
	// Closed once both servers have stopped
	Closers []io.Closer
}

// Serve runs the HTTP search API and the gRPC health service until ctx is
// done, then drains both within the grace period.
func Serve(ctx context.Context, config Config, logger *log.Logrus, deps Deps) error {
	defer closeAll(logger, deps.Closers)

	apiServer, err := handlersv1.NewAPIServer(logger, deps.Searchers, handlersv1.WithStatsD(deps.StatsDReporter))
	if err != nil {
		return err
	}

	healthServer := health.NewServer()

	// init grpc
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(config.GRPC.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(config.GRPC.MaxSendMsgSize),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(),
			grpc_ctxtags.UnaryServerInterceptor(),
			otelgrpc.UnaryServerInterceptor(),
			grpc_logrus.UnaryServerInterceptor(logger.Entry()),
			nrgrpc.UnaryServerInterceptor(deps.NRApp),
			grpc_interceptor.StatsD(deps.StatsDReporter),
		)),
	)
	reflection.Register(grpcServer)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	// init http proxy
	grpcDialCtx, grpcDialCancel := context.WithTimeout(ctx, gracePeriod)
	defer grpcDialCancel()

	grpcConn, err := grpc.DialContext(
		grpcDialCtx,
		config.grpcAddr(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.GRPC.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(config.GRPC.MaxSendMsgSize),
		))
	if err != nil {
		return err
	}
	defer grpcConn.Close()

	gwmux := runtime.NewServeMux(
		runtime.WithErrorHandler(runtime.DefaultHTTPErrorHandler),
		runtime.WithIncomingHeaderMatcher(makeHeaderMatcher(config)),
		runtime.WithHealthEndpointAt(grpc_health_v1.NewHealthClient(grpcConn), "/ping"),
	)
	if err := apiServer.RegisterHandlers(gwmux); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         config.addr(),
		Handler:      NewHTTPHandler(gwmux, logger, config, deps),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Starting server",
		"http_port", config.addr(),
		"grpc_port", config.grpcAddr(),
		"entities", strings.Join(apiServer.Entities(), ","),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lis, err := net.Listen("tcp", config.grpcAddr())
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "err", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// NewHTTPHandler wraps the gateway mux with the request id, logging,
// instrumentation and compression layers.
func NewHTTPHandler(gwmux *runtime.ServeMux, logger log.Logger, config Config, deps Deps) http.Handler {
	var h http.Handler = gwmux
	h = grpc_interceptor.StatsDHandler(deps.StatsDReporter, h)
	_, h = newrelic.WrapHandle(deps.NRApp, "/", h)
	h = withLogging(logger, h)
	h = withRequestID(config.RequestIDHeader, h)
	return handlers.CompressHandler(h)
}

// makeHeaderMatcher forwards the request id to grpc handlers alongside the
// headers grpc gateway maps by default.
func makeHeaderMatcher(c Config) func(key string) (string, bool) {
	return func(key string) (string, bool) {
		if c.RequestIDHeader != "" && strings.EqualFold(key, c.RequestIDHeader) {
			return key, true
		}
		return runtime.DefaultHeaderMatcher(key)
	}
}

func closeAll(logger log.Logger, closers []io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Error("error when closing", "err", err)
		}
	}
}
