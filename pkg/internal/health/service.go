// GRPC health check server
// (https://godoc.org/google.golang.org/grpc/health/grpc_health_v1)
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	rpc "google.golang.org/grpc/health/grpc_health_v1"
)

// New listens on addr and returns a function serving the health service
// until ctx is canceled.
func New(addr string) (run func(ctx context.Context, checkFn CheckFn) error, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, checkFn CheckFn) error {
		s := grpc.NewServer(grpc.ConnectionTimeout(time.Second * 3))
		rpc.RegisterHealthServer(s, &server{checkFn: checkFn})
		stop := context.AfterFunc(ctx, s.Stop)
		defer stop()
		return s.Serve(ln)
	}, nil
}

type CheckFn func(ctx context.Context) (*rpc.HealthCheckResponse, error)

// Serving is a CheckFn reporting SERVING while ok returns true.
func Serving(ok func() bool) CheckFn {
	return func(context.Context) (*rpc.HealthCheckResponse, error) {
		status := rpc.HealthCheckResponse_NOT_SERVING
		if ok() {
			status = rpc.HealthCheckResponse_SERVING
		}
		return &rpc.HealthCheckResponse{Status: status}, nil
	}
}

type server struct {
	rpc.UnimplementedHealthServer
	checkFn CheckFn
}

func (s *server) Check(ctx context.Context, _ *rpc.HealthCheckRequest) (*rpc.HealthCheckResponse, error) {
	return s.checkFn(ctx)
}
