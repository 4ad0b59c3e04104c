// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/blob"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/secrets"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/internal/workflow"
	"github.com/pdiddy/deck-engine/pkg/types"
)

func setDefaults() {
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini_model", llm.DefaultGeminiModel)
	viper.SetDefault("ai.anthropic_model", llm.DefaultAnthropicModel)
	viper.SetDefault("ai.openai_model", llm.DefaultOpenAIModel)
	viper.SetDefault("ai.max_output_tokens", 8192)
	viper.SetDefault("ai.max_retries", 0)

	viper.SetDefault("harvest.max_chars", harvest.DefaultMaxChars)
	viper.SetDefault("harvest.concurrency", 1)

	viper.SetDefault("backend.url", "http://localhost:8790/")
	viper.SetDefault("backend.listen", ":8790")
	viper.SetDefault("backend.max_retries", 3)
	viper.SetDefault("backend.timeout", 120*time.Second)
	viper.SetDefault("backend.user_agent", "deck-engine/"+version)

	viper.SetDefault("store.path", store.DefaultPath)

	viper.SetDefault("blob.backend", string(types.BlobFilesystem))
	viper.SetDefault("blob.dir", blob.DefaultDir)
	viper.SetDefault("blob.use_ssl", false)

	viper.SetDefault("sync.channel_prefix", syncbus.DefaultChannelPrefix)

	viper.SetDefault("export.format", string(types.ExportHTML))

	viper.SetDefault("workflow.timeout", workflow.DefaultTimeout)
}

// loadConfig assembles the component configuration from viper. API keys
// fall back to .secrets/ files.
func loadConfig() types.Config {
	return types.Config{
		AI: types.AIConfig{
			Provider:        viper.GetString("ai.provider"),
			GeminiModel:     viper.GetString("ai.gemini_model"),
			AnthropicModel:  viper.GetString("ai.anthropic_model"),
			OpenAIModel:     viper.GetString("ai.openai_model"),
			GeminiAPIKey:    secretDefault(secrets.GeminiAPIKey, viper.GetString("ai.gemini_api_key")),
			AnthropicAPIKey: secretDefault(secrets.AnthropicAPIKey, viper.GetString("ai.anthropic_api_key")),
			OpenAIAPIKey:    secretDefault(secrets.OpenAIAPIKey, viper.GetString("ai.openai_api_key")),
			MaxOutputTokens: viper.GetInt("ai.max_output_tokens"),
			MaxRetries:      viper.GetInt("ai.max_retries"),
		},
		Harvest: types.HarvestConfig{
			MaxChars:    viper.GetInt("harvest.max_chars"),
			Concurrency: viper.GetInt("harvest.concurrency"),
		},
		Backend: types.BackendConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("backend.timeout"),
				UserAgent: viper.GetString("backend.user_agent"),
			},
			URL:        viper.GetString("backend.url"),
			MaxRetries: viper.GetInt("backend.max_retries"),
			Listen:     viper.GetString("backend.listen"),
		},
		Store: types.StoreConfig{
			Path: viper.GetString("store.path"),
		},
		Blob: types.BlobConfig{
			Backend:   types.BlobBackend(viper.GetString("blob.backend")),
			Dir:       viper.GetString("blob.dir"),
			Endpoint:  viper.GetString("blob.endpoint"),
			Bucket:    viper.GetString("blob.bucket"),
			AccessKey: viper.GetString("blob.access_key"),
			SecretKey: secretDefault(secrets.MinioSecretKey, viper.GetString("blob.secret_key")),
			UseSSL:    viper.GetBool("blob.use_ssl"),
		},
		Sync: types.SyncConfig{
			RedisURL:      viper.GetString("sync.redis_url"),
			ChannelPrefix: viper.GetString("sync.channel_prefix"),
		},
		Export: types.ExportConfig{
			Format:   types.ExportFormat(viper.GetString("export.format")),
			LogoPath: viper.GetString("export.logo_path"),
		},
		Workflow: types.WorkflowConfig{
			Timeout: viper.GetDuration("workflow.timeout"),
		},
	}
}

// newRouter registers every provider that has an API key. It returns nil
// when none is configured.
func newRouter(ctx context.Context, cfg types.AIConfig, log *zap.Logger) (*llm.Router, error) {
	router := llm.NewRouter()
	if cfg.GeminiAPIKey != "" {
		b, err := llm.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxOutputTokens)
		if err != nil {
			return nil, err
		}
		router.Register("gemini", b)
	}
	if cfg.AnthropicAPIKey != "" {
		b, err := llm.NewAnthropicBackend(cfg.AnthropicAPIKey, "", cfg.AnthropicModel, cfg.MaxOutputTokens, cfg.MaxRetries)
		if err != nil {
			return nil, err
		}
		router.Register("anthropic", b)
	}
	if cfg.OpenAIAPIKey != "" {
		b, err := llm.NewOpenAIBackend(cfg.OpenAIAPIKey, "", cfg.OpenAIModel, cfg.MaxOutputTokens, cfg.MaxRetries)
		if err != nil {
			return nil, err
		}
		router.Register("openai", b)
	}
	if len(router.Providers()) == 0 {
		return nil, nil
	}
	log.Info("generation providers registered", zap.Strings("providers", router.Providers()))
	return router, nil
}

// newBus creates the event bus, mirrored to Redis when sync.redis_url is
// set. The returned close function releases the mirror.
func newBus(ctx context.Context, cfg types.SyncConfig, log *zap.Logger) (*syncbus.Bus, *syncbus.RedisMirror, func(), error) {
	if cfg.RedisURL == "" {
		return syncbus.NewBus(nil, log), nil, func() {}, nil
	}
	mirror, err := syncbus.NewRedisMirror(ctx, cfg.RedisURL, cfg.ChannelPrefix, log)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := mirror.Close(); err != nil {
			log.Warn("closing redis mirror", zap.Error(err))
		}
	}
	return syncbus.NewBus(mirror, log), mirror, closeFn, nil
}

// failureNotifier reports rolled-back mutations to w.
func failureNotifier(w io.Writer) mutation.Notifier {
	return mutation.NotifierFunc(func(op string, err error) {
		fmt.Fprintf(w, "failed  %s: %v\n", op, err)
	})
}

// splitIDs flattens comma-separated and positional id arguments.
func splitIDs(values ...[]string) []string {
	var ids []string
	for _, vs := range values {
		for _, v := range vs {
			for _, id := range strings.Split(v, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}
