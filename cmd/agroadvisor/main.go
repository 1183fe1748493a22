package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/chitedze/agroadvisor/internal/advisor"
	"github.com/chitedze/agroadvisor/internal/ai"
	"github.com/chitedze/agroadvisor/internal/config"
	"github.com/chitedze/agroadvisor/internal/db"
	"github.com/chitedze/agroadvisor/internal/embedcache"
	"github.com/chitedze/agroadvisor/internal/filestore"
	"github.com/chitedze/agroadvisor/internal/handler"
	"github.com/chitedze/agroadvisor/internal/job"
	"github.com/chitedze/agroadvisor/internal/knowledge"
	"github.com/chitedze/agroadvisor/internal/middleware"
	"github.com/chitedze/agroadvisor/internal/repo"
	"github.com/chitedze/agroadvisor/internal/schedule"
	"github.com/chitedze/agroadvisor/internal/search"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "agroadvisor",
		Short: "agricultural advisory service for smallholder farmers",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the advisory server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	var docsDir string
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "build the knowledge-base artifacts from a document directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runIndex(cfg, docsDir)
		},
	}
	indexCmd.Flags().StringVar(&docsDir, "docs", "", "document directory (defaults to knowledge.docs_dir)")

	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "answer questions interactively from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runAsk(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, indexCmd, askCmd)
	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func buildEmbedder(cfg *config.Config) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	return embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.EmbedCache.Size,
		time.Duration(cfg.EmbedCache.TTLSeconds)*time.Second,
	), nil
}

func buildAdvisor(cfg *config.Config, logs advisor.QueryLogger) (*advisor.Advisor, *knowledge.Retriever, *search.Client, error) {
	ctx := context.Background()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(aiProvider, cfg.AI.Model)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init file store: %w", err)
	}

	// A missing knowledge base degrades to search-only answers.
	base, err := knowledge.LoadBase(ctx, store, cfg.Knowledge.IndexKey, cfg.Knowledge.ChunksKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("knowledge base unavailable", zap.Error(err))
		base = nil
	}
	retriever := knowledge.NewRetriever(base, embedder, cfg.Knowledge.TopK)

	searcher := search.NewClient(cfg.Search)
	if !searcher.Configured() {
		logutil.GetLogger(ctx).Warn("search api not configured, web context disabled")
	}

	adv := advisor.New(
		retriever,
		searcher,
		generator,
		advisor.NewConversationStore(cfg.HistoryCapacity),
		logs,
	)
	return adv, retriever, searcher, nil
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()

	conn, err := db.Open(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	adviceRepo := repo.NewAdviceRepo(conn)
	if err := adviceRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed advice: %w", err)
	}
	logRepo := repo.NewQueryLogRepo(conn)

	adv, retriever, searcher, err := buildAdvisor(cfg, logRepo)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Ask:       handler.NewAskHandler(adv),
		Advice:    handler.NewAdviceHandler(adviceRepo),
		Stats:     handler.NewStatsHandler(logRepo),
		Status:    handler.NewStatusHandler(retriever.Available, searcher.Configured),
		AskWindow: time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(
		job.NewQueryLogCleanupJob(logRepo, cfg.Retention.QueryLogKeepDays),
		cfg.Retention.CleanupCron,
	); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(runCtx)
	defer scheduler.Stop()

	if searcher.Configured() {
		go func() {
			pingCtx, cancel := context.WithTimeout(runCtx, 30*time.Second)
			defer cancel()
			logutil.GetLogger(ctx).Info("search api self-test", zap.Bool("ok", searcher.Ping(pingCtx)))
		}()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.Int("port", cfg.Port))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	logutil.GetLogger(ctx).Info("server stopping...")
	return nil
}

func runIndex(cfg *config.Config, docsDir string) error {
	ctx := context.Background()
	if docsDir == "" {
		docsDir = cfg.Knowledge.DocsDir
	}
	if docsDir == "" {
		return fmt.Errorf("--docs or knowledge.docs_dir is required")
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	builder := knowledge.NewBuilder(embedder, knowledge.DefaultChunkSize, knowledge.DefaultOverlap)
	base, err := builder.BuildFromDir(ctx, docsDir)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}
	if err := knowledge.SaveBase(ctx, store, base, cfg.Knowledge.IndexKey, cfg.Knowledge.ChunksKey); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	logutil.GetLogger(ctx).Info("knowledge base built",
		zap.String("docs", docsDir),
		zap.Int("chunks", len(base.Chunks)),
	)
	return nil
}

func runAsk(cfg *config.Config) error {
	ctx := context.Background()
	adv, _, _, err := buildAdvisor(cfg, nil)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask a farming question (empty line to exit):")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := scanner.Text()
		if query == "" {
			break
		}
		result := adv.Answer(ctx, "terminal", query)
		fmt.Println(result.Text)
	}
	return scanner.Err()
}
