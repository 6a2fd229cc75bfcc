package healthcheck_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nsridhar76/go-ordermgmt/internal/healthcheck"
)

type fakePinger struct {
	failing atomic.Bool
}

func (p *fakePinger) Ping(context.Context) error {
	if p.failing.Load() {
		return errors.New("connection refused")
	}
	return nil
}

var _ healthcheck.Pinger = (*fakePinger)(nil)

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestChecker(t *testing.T) {
	db := &fakePinger{}
	redis := &fakePinger{}

	c := healthcheck.NewChecker(time.Second, nil)
	c.Add("database", db)
	c.Add("redis", redis)

	report := c.Check(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, report.Checks)

	redis.failing.Store(true)

	report = c.Check(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, healthcheck.StatusUnhealthy, report.Checks["redis"])
	assert.Equal(t, healthcheck.StatusHealthy, report.Checks["database"])
}

func TestChecker_timeout(t *testing.T) {
	c := healthcheck.NewChecker(50*time.Millisecond, nil)
	c.Add("database", slowPinger{})

	start := time.Now()
	report := c.Check(context.Background())

	assert.False(t, report.Healthy())
	assert.Less(t, time.Since(start), time.Second)
}

func TestGRPCServer(t *testing.T) {
	db := &fakePinger{}
	c := healthcheck.NewChecker(time.Second, nil)
	c.Add("database", db)

	srv := healthcheck.NewGRPCServer(c, time.Hour, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))

	srv.Refresh(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(healthcheck.ServiceName))

	db.failing.Store(true)
	srv.Refresh(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(healthcheck.ServiceName))
}
