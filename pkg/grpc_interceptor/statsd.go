package grpc_interceptor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goto/sift/pkg/statsd"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const responseTimeMetric = "responseTime"

//go:generate mockery --name=StatsDClient -r --case underscore --with-expecter --structname StatsDClient --filename statsd_monitor.go --output=./mocks
type StatsDClient interface {
	Histogram(name string, value float64) *statsd.Metric
}

// StatsD reports the response time of every unary call tagged with the method
// and the resulting status code.
func StatsD(statsdReporter StatsDClient) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if statsdReporter == nil {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		statsdReporter.Histogram(responseTimeMetric, elapsedMillis(start)).
			Tag("method", info.FullMethod).
			Tag("status", status.Code(err).String()).
			Publish()
		return resp, err
	}
}

// StatsDHandler is the HTTP counterpart of StatsD. Routes are reported by the
// request method and status code only, path parameters would explode the
// metric cardinality.
func StatsDHandler(statsdReporter StatsDClient, next http.Handler) http.Handler {
	if statsdReporter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		statsdReporter.Histogram(responseTimeMetric, elapsedMillis(start)).
			Tag("method", r.Method).
			Tag("status", strconv.Itoa(rec.status)).
			Publish()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start) / time.Millisecond)
}
