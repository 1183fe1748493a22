package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/chitedze/agroadvisor/internal/filestore"
	"github.com/chitedze/agroadvisor/internal/search"
)

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	Data          interface{} `json:"data"`
	EmbedProvider string      `json:"embed_provider"`
	EmbedModel    string      `json:"embed_model"`
	EmbedData     interface{} `json:"embed_data"`
}

type KnowledgeConfig struct {
	IndexKey  string `json:"index_key"`
	ChunksKey string `json:"chunks_key"`
	DocsDir   string `json:"docs_dir"`
	TopK      int    `json:"top_k"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type RetentionConfig struct {
	QueryLogKeepDays int    `json:"query_log_keep_days"`
	CleanupCron      string `json:"cleanup_cron"`
}

type Config struct {
	Port            int              `json:"port"`
	DBDSN           string           `json:"db_dsn"`
	LogConfig       logger.LogConfig `json:"log_config"`
	AI              AIConfig         `json:"ai"`
	Search          search.Config    `json:"search"`
	Knowledge       KnowledgeConfig  `json:"knowledge"`
	FileStore       filestore.Config `json:"file_store"`
	EmbedCache      EmbedCacheConfig `json:"embed_cache"`
	Retention       RetentionConfig  `json:"retention"`
	HistoryCapacity int              `json:"history_capacity"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("db_dsn is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.EmbedData == nil {
		cfg.AI.EmbedData = cfg.AI.Data
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Knowledge.IndexKey == "" {
		cfg.Knowledge.IndexKey = "knowledge.idx"
	}
	if cfg.Knowledge.ChunksKey == "" {
		cfg.Knowledge.ChunksKey = "chunks.dat"
	}
	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 3
	}
	if cfg.EmbedCache.Size == 0 {
		cfg.EmbedCache.Size = 2048
	}
	if cfg.EmbedCache.TTLSeconds == 0 {
		cfg.EmbedCache.TTLSeconds = 24 * 3600
	}
	if cfg.Retention.QueryLogKeepDays == 0 {
		cfg.Retention.QueryLogKeepDays = 90
	}
	if cfg.Retention.CleanupCron == "" {
		cfg.Retention.CleanupCron = "0 3 * * *"
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = 10
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	return &cfg, nil
}
