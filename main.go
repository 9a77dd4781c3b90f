package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/klauspost/compress/gzhttp"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"feed/clock"
	"feed/config"
	"feed/controller"
	"feed/controller/jwt"
	"feed/repository"
	"feed/repository/cassandra"
	"feed/repository/redis"
	"feed/repository/sqlite"
	"feed/rpc"
	"feed/service"
	"feed/tls"
	"feed/tracing"
)

func openRepository(tracer trace.Tracer, cfg config.StoreConfig) (repository.Repository, error) {
	if cfg.Driver == "cassandra" {
		repo, err := cassandra.NewCassandraTweetRepository(tracer, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := sqlite.NewSQLiteTweetRepository(tracer, cfg.SQLitePath, cfg.SQLitePoolSize)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func openProfileCache(tracer trace.Tracer, cfg config.RedisConfig) repository.ProfileCache {
	if !cfg.Enabled() {
		log.Println("redis not configured, profile counters are read from the store")
		return repository.NoProfileCache{}
	}
	return redis.NewRedisProfileCache(tracer, cfg)
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	grpcAddr := flag.String("grpc-addr", "", "gRPC listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPC.Addr = *grpcAddr
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	ctx := context.Background()
	exp, err := tracing.NewExporter(cfg.Tracing)
	if err != nil {
		log.Fatalf("failed to initialize exporter: %v", err)
	}
	tp := tracing.NewTraceProvider(exp, cfg.Tracing)
	defer func() { _ = tp.Shutdown(ctx) }()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(cfg.Tracing.ServiceName)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	repo, err := openRepository(tracer, cfg.Store)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = repo.Close() }()

	profileCounters := service.NewProfileCounters(openProfileCache(tracer, cfg.Redis))
	secret := []byte(cfg.Auth.SecretKey)

	pager := service.NewPager(repo, tracer, cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit)
	tweetService := service.NewTweetService(repo, profileCounters, pager, clock.Real(), tracer)
	profileService := service.NewProfileService(repo, profileCounters, tracer)

	router := controller.NewRouter(
		controller.NewTweetController(tweetService, tracer),
		controller.NewProfileController(profileService, tracer),
		tracer,
		secret,
	)

	allowedHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization", "If-None-Match"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "HEAD", "OPTIONS"})
	allowedOrigins := handlers.AllowedOrigins([]string{"*"})
	exposedHeaders := handlers.ExposedHeaders([]string{"ETag"})

	httpTLS, err := tls.GetHTTPServerTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatal(err)
	}

	// start server
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: handlers.CombinedLoggingHandler(os.Stdout,
			gzhttp.GzipHandler(handlers.CORS(allowedHeaders, allowedMethods, allowedOrigins, exposedHeaders)(router))),
		TLSConfig: httpTLS,
	}

	go func() {
		log.Printf("http server starting on %s", cfg.HTTP.Addr)

		var err error
		if cfg.TLS.Enabled() {
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			otelgrpc.UnaryServerInterceptor(),
			jwt.UnaryServerInterceptor(tracer, secret),
		),
	}
	if cfg.TLS.Enabled() {
		grpcTLS, err := tls.GetgRPCServerTLSConfig(cfg.TLS)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(grpcTLS)))
	}

	grpcServer := grpc.NewServer(opts...)
	rpc.RegisterTweetServiceServer(grpcServer, service.NewgRPCTweetService(tracer, tweetService, profileService))
	reflection.Register(grpcServer)

	go func() {
		log.Printf("grpc server starting on %s", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal(err)
		}
	}()

	<-quit

	log.Println("service shutting down ...")

	// gracefully stop servers
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
	log.Println("server stopped")
}
