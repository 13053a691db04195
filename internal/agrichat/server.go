// Package agrichat assembles the agricultural disease chat service.
package agrichat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/agrichat/internal/agrichat/biz"
	"github.com/kart-io/agrichat/internal/agrichat/handler"
	"github.com/kart-io/agrichat/internal/agrichat/router"
	"github.com/kart-io/agrichat/internal/agrichat/session"
	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/pkg/component/milvus"
	"github.com/kart-io/agrichat/pkg/llm"
	_ "github.com/kart-io/agrichat/pkg/llm/huggingface"
	_ "github.com/kart-io/agrichat/pkg/llm/openai"
	cacheopts "github.com/kart-io/agrichat/pkg/options/cache"
	llmopts "github.com/kart-io/agrichat/pkg/options/llm"
	logopts "github.com/kart-io/agrichat/pkg/options/logger"
	milvusopts "github.com/kart-io/agrichat/pkg/options/milvus"
	ragopts "github.com/kart-io/agrichat/pkg/options/rag"
	redisopts "github.com/kart-io/agrichat/pkg/options/redis"
	httpopts "github.com/kart-io/agrichat/pkg/options/server/http"
	sessopts "github.com/kart-io/agrichat/pkg/options/session"
)

// ServiceName is used as the logging service identity.
const ServiceName = "agrichat"

// Config carries everything needed to assemble the server.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	SessionOptions   *sessopts.Options
	CacheOptions     *cacheopts.Options
	MilvusOptions    *milvusopts.Options
}

// Server is the assembled chat service.
type Server struct {
	cfg     *Config
	engine  *gin.Engine
	indexer *biz.Indexer
	vectors store.VectorStore
}

// NewServer wires providers, stores and the pipeline from the config.
func NewServer(cfg *Config) (*Server, error) {
	cfg.LogOptions.LogOption.AddInitialField("service.name", ServiceName)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create chat provider: %w", err)
	}
	logger.Infow("LLM providers ready",
		"embedding_provider", embedder.Name(), "embedding_model", cfg.EmbeddingOptions.Model,
		"chat_provider", chat.Name(), "chat_model", cfg.ChatOptions.Model)

	vectors, err := newVectorStore(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := newSessionStore(cfg.SessionOptions)
	if err != nil {
		return nil, err
	}

	cache := newRetrievalCache(cfg.CacheOptions)

	svc := biz.NewService(
		biz.NewRewriter(chat),
		biz.NewRetriever(embedder, vectors, cfg.RAGOptions.TopK),
		biz.NewGenerator(chat),
		sessions,
		vectors,
		cache,
	)

	chatHandler := handler.NewChatHandler(svc, cfg.HTTPOptions.RequestTimeout)

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(chatHandler)

	return &Server{
		cfg:     cfg,
		engine:  engine,
		indexer: biz.NewIndexer(cfg.RAGOptions, embedder, vectors),
		vectors: vectors,
	}, nil
}

func newVectorStore(cfg *Config) (store.VectorStore, error) {
	switch cfg.RAGOptions.Backend {
	case "local":
		return store.NewLocalStore(cfg.RAGOptions.PersistDir)
	case "milvus":
		client, err := milvus.New(cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to milvus: %w", err)
		}
		return store.NewMilvusStore(client, cfg.RAGOptions.Collection, cfg.RAGOptions.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.RAGOptions.Backend)
	}
}

func newSessionStore(opts *sessopts.Options) (session.Store, error) {
	switch opts.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		client, err := newRedisClient(opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis for sessions: %w", err)
		}
		return session.NewRedisStore(client, opts.KeyPrefix, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}
}

// newRetrievalCache builds the retrieval cache when enabled. A Redis
// that cannot be reached degrades to running without a cache.
func newRetrievalCache(opts *cacheopts.Options) *biz.RetrievalCache {
	if opts == nil || !opts.Enabled {
		return nil
	}

	client, err := newRedisClient(opts.Redis)
	if err != nil {
		logger.Warnw("Retrieval cache disabled, redis unreachable", "addr", opts.Redis.Addr(), "error", err)
		return nil
	}

	logger.Infow("Retrieval cache enabled", "ttl", opts.TTL.String(), "key_prefix", opts.KeyPrefix)
	return biz.NewRetrievalCache(client, opts.TTL, opts.KeyPrefix)
}

func newRedisClient(opts *redisopts.Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Run builds or loads the index and serves HTTP until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.indexer.BuildOrLoad(ctx); err != nil {
		return fmt.Errorf("failed to prepare knowledge base index: %w", err)
	}

	httpServer := &http.Server{
		Addr:         s.cfg.HTTPOptions.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: s.cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  s.cfg.HTTPOptions.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err)
	}

	if err := s.vectors.Close(context.Background()); err != nil {
		logger.Warnw("Failed to close vector store", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}
