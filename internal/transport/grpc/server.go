// grpc поднимает служебный gRPC-листенер: только grpc.health.v1.Health.
// Статус SERVING отражает доступность хранилища пользователей
// и обновляется фоновой проверкой (см. Server.Watch).
package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultProbeTimeout = 5 * time.Second

// Pinger — проверка доступности зависимости (хранилище, кэш).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options — параметры сервера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration // дедлайн unary-вызова по умолчанию
	Reflection bool          // включать только в local/dev
}

// Server — gRPC-сервер с health-сервисом.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	pinger Pinger
	log    *slog.Logger
}

// New собирает сервер с цепочкой интерсепторов recover -> logging -> timeout -> prometheus.
// Изначально статус NOT_SERVING.
func New(pinger Pinger, opts Options) *Server {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			Recover(l),
			Logging(l),
			Timeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	return &Server{srv: srv, health: hs, pinger: pinger, log: l}
}

// SetServing переключает общий статус health-сервиса.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", st)
}

// Check один раз пингует зависимость и обновляет статус.
func (s *Server) Check(ctx context.Context) error {
	if s.pinger == nil {
		s.SetServing(true)
		return nil
	}

	err := s.pinger.Ping(ctx)
	if err != nil {
		s.log.Warn("health_check_failed", slog.String("err", err.Error()))
	}
	s.SetServing(err == nil)

	return err
}

// Watch выполняет Check сразу и затем каждые interval до отмены ctx.
// При выходе статус становится NOT_SERVING.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	defer s.SetServing(false)

	probe := interval
	if probe <= 0 {
		probe = defaultProbeTimeout
	}

	check := func() {
		cctx, cancel := context.WithTimeout(ctx, probe)
		defer cancel()
		_ = s.Check(cctx)
	}

	check()
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Stop корректно останавливает сервер; по истечении ctx — принудительно.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc_stopped")
	case <-ctx.Done():
		s.log.Warn("grpc_force_stop")
		s.srv.Stop()
	}
}
