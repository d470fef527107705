package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atelierbps/skill-compass/internal/analysis"
	"github.com/atelierbps/skill-compass/internal/cache"
	"github.com/atelierbps/skill-compass/internal/catalog"
	"github.com/atelierbps/skill-compass/internal/errors"
	"github.com/atelierbps/skill-compass/internal/ingest"
	"github.com/atelierbps/skill-compass/internal/monitoring"
	"github.com/atelierbps/skill-compass/internal/ratelimit"
)

// analyzeResponse is the full report payload: the analytics bundle plus
// the ingestion totals the dashboard shows alongside it.
type analyzeResponse struct {
	analysis.Bundle
	CommentThemes []analysis.ThemeCount `json:"comment_themes"`
	TotalCount    int                   `json:"total_count"`
	ParsingErrors int                   `json:"parsing_errors"`
	Warnings      []string              `json:"warnings,omitempty"`
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	catalogPath := getEnvOrDefault("CATALOG_PATH", "./tasks.json")
	thresholdsPath := getEnvOrDefault("THRESHOLDS_PATH", "./thresholds.yaml")
	cacheTTL := getEnvDurationOrDefault("CACHE_TTL", 15*time.Minute)
	port := getEnvOrDefault("PORT", "8080")

	// The catalog is loaded once per process and is authoritative for
	// which assessment columns are task columns.
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		slog.Error("Failed to load task catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Task catalog loaded", "path", catalogPath, "tasks", cat.Len())

	baseCfg, err := analysis.LoadConfig(thresholdsPath)
	if err != nil {
		slog.Error("Failed to load thresholds", "path", thresholdsPath, "error", err)
		os.Exit(1)
	}

	r := setupRouter(cat, baseCfg, cacheTTL)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
	slog.Info("Server exited")
}

// setupRouter wires the middleware stack and the report endpoints around
// a loaded catalog and threshold set.
func setupRouter(cat *catalog.Catalog, baseCfg analysis.Config, cacheTTL time.Duration) *gin.Engine {
	r := gin.New()

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Middleware: monitoring first to capture all requests
	r.Use(monitoring.Middleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	limiter := ratelimit.New(ratelimit.DefaultConfig())

	resultCache := cache.New(cacheTTL)

	r.POST("/analyze", limiter.Middleware(), func(c *gin.Context) {
		start := time.Now()

		content, err := readUpload(c)
		if err != nil {
			respondError(c, errors.NewIngestionError("could not read the uploaded assessment file", err))
			return
		}

		cfg, err := thresholdsFromQuery(c, baseCfg)
		if err != nil {
			respondError(c, errors.NewIngestionError(err.Error(), err))
			return
		}

		// Memoize on content + thresholds: same upload, same report.
		cfgBytes, _ := json.Marshal(cfg)
		key := cache.Key(append(append([]byte(nil), content...), cfgBytes...))

		var factRows, personCount, parseErrors int
		data, hit, err := resultCache.GetOrCompute(key, func() ([]byte, error) {
			res, err := ingest.Parse(bytes.NewReader(content), cat)
			if err != nil {
				return nil, err
			}

			merged, mergeWarnings := ingest.Merge(res.Facts, cat)
			warnings := append(res.Warnings, mergeWarnings...)
			appLogger.IngestionWarnings(warnings)

			bundle := analysis.Compute(merged, res.Persons, cfg, time.Now())

			comments := make([]string, 0, len(res.Persons))
			for _, p := range res.Persons {
				comments = append(comments, p.Comments)
			}

			factRows = len(merged)
			personCount = len(res.Persons)
			parseErrors = res.ParsingErrors
			appMetrics.RecordAnalysis(factRows, parseErrors)

			return json.Marshal(analyzeResponse{
				Bundle:        bundle,
				CommentThemes: analysis.AnalyzeCommentThemes(comments),
				TotalCount:    res.TotalCount,
				ParsingErrors: res.ParsingErrors,
				Warnings:      warnings,
			})
		})
		if err != nil {
			respondError(c, ingestionAppError(err))
			return
		}

		if hit {
			appMetrics.IncrementCacheHit()
		} else {
			appMetrics.IncrementCacheMiss()
			// The closure counters are only populated on the computing
			// request, so a served cache hit logs the hit alone.
			appLogger.AnalysisLogger(factRows, personCount, parseErrors, time.Since(start), hit)
		}
		appLogger.CacheLogger("analyze", key, hit, resultCache.Size())

		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	})

	// Blank upload template with one illustrative example row
	r.GET("/template.csv", func(c *gin.Context) {
		data, err := cat.CSVTemplate()
		if err != nil {
			respondError(c, errors.NewInternalError("failed to render template", err))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="userData_template.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	})

	// Plain-text task_id: title reference listing
	r.GET("/tasks.txt", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", cat.TaskGuide())
	})

	r.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"skills": cat.Tasks()})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"catalog": gin.H{
				"path":  cat.Path(),
				"tasks": cat.Len(),
			},
			"metrics": appMetrics.GetStats(),
			"cache":   resultCache.Stats(),
		})
	})

	return r
}

// readUpload accepts either a multipart form with a "file" field or a raw
// CSV request body.
func readUpload(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty request body")
	}
	return data, nil
}

// thresholdsFromQuery overlays per-request threshold overrides onto the
// configured defaults.
func thresholdsFromQuery(c *gin.Context, base analysis.Config) (analysis.Config, error) {
	cfg := base

	floatParams := map[string]*float64{
		"expert_threshold":      &cfg.ExpertThreshold,
		"beginner_threshold":    &cfg.BeginnerThreshold,
		"pipeline_min":          &cfg.PipelineMin,
		"pipeline_max":          &cfg.PipelineMax,
		"critical_avg_score":    &cfg.CriticalAvgScore,
		"high_risk_index":       &cfg.HighRiskIndex,
		"opportunity_threshold": &cfg.OpportunityThreshold,
	}
	for name, dst := range floatParams {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return base, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = v
	}

	if raw := c.Query("expiration_window_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return base, fmt.Errorf("invalid expiration_window_days: %q", raw)
		}
		cfg.ExpirationWindowDays = v
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// ingestionAppError maps the ingestor's fatal conditions to a 422 with a
// corrective message; anything else is an internal error.
func ingestionAppError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, ingest.ErrUnreadable):
		return errors.NewIngestionError("the uploaded file could not be read as a semicolon-delimited CSV", err)
	case stderrors.Is(err, ingest.ErrMissingIdentity):
		return errors.NewIngestionError("the required identity column 'BPS' is missing - download the template and keep its headers", err)
	case stderrors.Is(err, ingest.ErrNoTaskColumns):
		return errors.NewIngestionError("no 'Task N' columns were found - there is nothing to analyze", err)
	default:
		return errors.ToAppError(err)
	}
}

func respondError(c *gin.Context, appErr *errors.AppError) {
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", v)
	}
	return fallback
}
