package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SeaCloudHub/objdetect/adapters/engine"
	"github.com/SeaCloudHub/objdetect/adapters/engine/backend"
	"github.com/SeaCloudHub/objdetect/adapters/event"
	"github.com/SeaCloudHub/objdetect/adapters/event/listeners"
	"github.com/SeaCloudHub/objdetect/adapters/httpserver"
	"github.com/SeaCloudHub/objdetect/adapters/redisstore"
	"github.com/SeaCloudHub/objdetect/adapters/services"
	"github.com/SeaCloudHub/objdetect/domain"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/logger"
	"github.com/SeaCloudHub/objdetect/pkg/sentry"
	sentrygo "github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	applog, err := logger.NewAppLogger()
	if err != nil {
		log.Fatalf("cannot init logger: %v\n", err)
	}
	defer logger.Sync(applog)

	cfg, err := config.LoadConfig()
	if err != nil {
		applog.Fatal(err)
	}

	if cfg.GeneratedSecret {
		applog.Warn("SECRET_KEY is not set, using a random key for this process")
	}

	err = sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		AttachStacktrace: true,
	})
	if err != nil {
		applog.Fatalf("cannot init sentry: %v", err)
	}
	defer sentrygo.Flush(sentry.FlushTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// detection engine
	loader, err := backend.NewLoader(cfg)
	if err != nil {
		applog.Fatal(err)
	}

	handle := engine.NewHandle(loader, applog)

	if !cfg.Detector.Lazy {
		if _, err := handle.Load(ctx); err != nil {
			applog.Fatalw("cannot start without a detection engine",
				zap.String("backend", cfg.Detector.Backend),
				zap.Error(err),
			)
		}
	}

	// event bus
	dispatcher := event.NewEventDispatcher()
	if closer := registerPublisher(ctx, cfg, applog, dispatcher); closer != nil {
		defer closer()
	}

	server, err := httpserver.New(cfg, applog,
		httpserver.WithDetectionService(services.NewDetectionService(handle, cfg, applog, dispatcher)),
		httpserver.WithEngineStatus(handle),
	)
	if err != nil {
		applog.Fatal(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		applog.Fatal(err)
	}

	applog.Infow("server started!", zap.String("addr", srv.Addr), zap.String("engine", handle.State().String()))
	if err := serve(ctx, srv, ln, handle, applog); err != nil {
		applog.Fatal(err)
	}

	applog.Info("server stopped")
}

// serve runs srv on ln until ctx is done, waits for in-flight requests to
// drain and only then releases the engine through closer.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, closer io.Closer, applog *zap.SugaredLogger) error {
	// drained is closed once Shutdown has waited for in-flight requests.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			applog.Errorw("shutdown", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-drained

	if err := closer.Close(); err != nil {
		applog.Errorw("close detection engine", zap.Error(err))
	}

	return nil
}

// registerPublisher announces finished detections on redis when REDIS_ADDR is
// set. An unreachable redis only disables the announcements.
func registerPublisher(ctx context.Context, cfg *config.Config, applog *zap.SugaredLogger,
	dispatcher domain.EventDispatcher) func() {
	opts := redisstore.ParseFromConfig(cfg)
	if !opts.Enabled() {
		return nil
	}

	rdb, err := redisstore.NewConnection(ctx, opts)
	if err != nil {
		applog.Warnw("redis unavailable, detection events will not be published", zap.Error(err))
		return nil
	}

	client := redisstore.NewRedisClient(rdb)
	listener := listeners.NewDetectionCompletedListener(client, opts.Channel, applog)
	dispatcher.Register(detection.DetectionCompletedEvent{}.EventName(), listener.EventHandler)

	applog.Infow("publishing detection events", zap.String("addr", opts.Addr), zap.String("channel", opts.Channel))

	return func() {
		listener.Wait()
		_ = client.Close()
	}
}
