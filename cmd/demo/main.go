// Command demo runs a local gin server with deliberately awkward endpoints
// (flaky responses, redirects, compressed bodies) and exercises a fully
// assembled pipeline against it. Prometheus metrics for the client side are
// served on /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/config"
	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/pipeline"
	"github.com/GriffinCanCode/conduit/pipeline/transport"
)

func main() {
	port := flag.String("port", "8780", "Demo server port")
	configPath := flag.String("config", "", "Optional pipeline YAML config")
	interval := flag.Duration("interval", 2*time.Second, "Delay between demo requests")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	server := &http.Server{
		Addr:    ":" + *port,
		Handler: demoRouter(),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("demo server failed", zap.Error(err))
		}
	}()

	tr := transport.NewDefault()
	pipe := cfg.NewPipeline(tr, config.PipelineOptions{
		Logger:   logger,
		Registry: prometheus.DefaultRegisterer,
	})
	if err := pipe.Open(); err != nil {
		logger.Fatal("pipeline open failed", zap.Error(err))
	}
	defer pipe.Close()

	base := fmt.Sprintf("http://localhost:%s", *port)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go driveClient(ctx, logger, pipe, base, *interval)

	logger.Info("demo running",
		zap.String("server", base),
		zap.String("metrics", base+"/metrics"),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

// demoRouter serves the endpoints the client loop exercises.
func demoRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/echo", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusBadRequest, "read: %v", err)
			return
		}
		c.Data(http.StatusOK, c.ContentType(), body)
	})

	// Fails twice out of every three calls so the retry policy has work to do.
	var flakyCalls int64
	router.GET("/flaky", func(c *gin.Context) {
		if atomic.AddInt64(&flakyCalls, 1)%3 != 0 {
			c.String(http.StatusServiceUnavailable, "try again")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.GET("/moved", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/echo-target")
	})
	router.GET("/echo-target", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"landed": true})
	})

	router.GET("/compressed", func(c *gin.Context) {
		c.Header("Content-Encoding", "gzip")
		c.Header("Content-Type", "text/plain")
		zw := gzip.NewWriter(c.Writer)
		defer zw.Close()
		fmt.Fprint(zw, "this body crossed the wire gzipped")
	})

	return router
}

// driveClient sends one request per endpoint on a loop until ctx ends.
func driveClient(ctx context.Context, logger *zap.Logger, pipe *pipeline.Pipeline, base string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	targets := []func() *pipeline.HTTPRequest{
		func() *pipeline.HTTPRequest {
			req := pipeline.NewHTTPRequest(http.MethodPost, base+"/echo")
			if err := req.SetJSONBody(map[string]any{"ping": time.Now().Unix()}); err != nil {
				logger.Warn("marshal body", zap.Error(err))
			}
			return req
		},
		func() *pipeline.HTTPRequest {
			return pipeline.NewHTTPRequest(http.MethodGet, base+"/flaky")
		},
		func() *pipeline.HTTPRequest {
			return pipeline.NewHTTPRequest(http.MethodGet, base+"/moved")
		},
		func() *pipeline.HTTPRequest {
			return pipeline.NewHTTPRequest(http.MethodGet, base+"/compressed")
		},
	}

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		req := targets[i%len(targets)]()
		resp, err := pipe.Run(ctx, req, pipeline.WithTimeout(10*time.Second))
		if err != nil {
			logger.Warn("demo request failed", zap.String("url", req.URL), zap.Error(err))
			continue
		}
		body, _ := resp.HTTPResponse.Drain()
		logger.Info("demo request done",
			zap.String("url", req.URL),
			zap.Int("status", resp.HTTPResponse.StatusCode),
			zap.Int("body_bytes", len(body)),
		)
	}
}
