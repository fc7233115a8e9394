// Command santa-lambda serves the wish board behind an API Gateway HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/joho/godotenv"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/geoip"
	"github.com/hpungsan/santa/internal/logging"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/web"
)

// Version is set via -ldflags at build time.
var Version = "dev"

var (
	chiLambda *chiadapter.ChiLambdaV2
	log       = logging.New("production")
	coldStart = true
)

// homeDir is where the file and SQLite stores live. Only /tmp is writable
// on Lambda, so postgres is the store that survives between instances.
func homeDir() string {
	if dir := os.Getenv("SANTA_HOME"); dir != "" {
		return dir
	}
	return "/tmp/santa"
}

// setup loads config from dir and builds the proxied router.
func setup(dir string) error {
	started := time.Now()

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log = logging.New(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := store.Open(ctx, cfg, dir)
	if err != nil {
		return fmt.Errorf("open wish store: %w", err)
	}

	opts := web.Options{Store: s, Config: cfg, Logger: log, Version: Version}
	if r, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		log.Warn().Err(err).Msg("geoip disabled")
	} else if r != nil {
		opts.Resolver = r
	}

	h, err := web.NewHandlers(opts)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("build handlers: %w", err)
	}
	chiLambda = chiadapter.NewV2(web.NewRouter(h))
	log.Info().Dur("took", time.Since(started)).Str("store", cfg.Store).Msg("cold start complete")
	return nil
}

// Handler proxies one API Gateway request through the router.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log.Debug().
		Str("method", req.RequestContext.HTTP.Method).
		Str("path", req.RequestContext.HTTP.Path).
		Str("request_id", req.RequestContext.RequestID).
		Bool("cold_start", coldStart).
		Msg("lambda request")
	coldStart = false

	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	_ = godotenv.Load()
	if err := setup(homeDir()); err != nil {
		log.Fatal().Err(err).Msg("cold start failed")
	}
	lambda.Start(Handler)
}
