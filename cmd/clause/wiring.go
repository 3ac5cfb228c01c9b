package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/clauseworks/clausegraph/answer"
	"github.com/clauseworks/clausegraph/engine"
	"github.com/clauseworks/clausegraph/ingest"
	"github.com/clauseworks/clausegraph/llm"
	"github.com/clauseworks/clausegraph/log"
	"github.com/clauseworks/clausegraph/stages"
	"github.com/clauseworks/clausegraph/store/sqlite"
	"github.com/clauseworks/clausegraph/vecindex"
	vecmem "github.com/clauseworks/clausegraph/vecindex/memory"
	vecredis "github.com/clauseworks/clausegraph/vecindex/redis"
)

// app holds the wired components for one CLI invocation.
type app struct {
	engine  *engine.Engine
	records *sqlite.Store
	index   vecindex.Index
	client  *llm.OpenAIClient
	logger  log.Logger
}

func buildApp() (*app, error) {
	if rootFlags.tenant == "" {
		return nil, fmt.Errorf("--tenant is required")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	var clientOpts []llm.OpenAIOption
	if rootFlags.chatModel != "" {
		clientOpts = append(clientOpts, llm.WithChatModel(rootFlags.chatModel))
	}
	client := llm.NewOpenAIClient(apiKey, clientOpts...)

	records, err := sqlite.New(sqlite.Options{Path: rootFlags.dbPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var index vecindex.Index
	if rootFlags.redisAddr != "" {
		index = vecredis.New(vecredis.Options{Addr: rootFlags.redisAddr})
	} else {
		index = vecmem.New()
	}

	runnable, err := stages.DefaultPipeline(client).Compile()
	if err != nil {
		return nil, err
	}

	var chatOpts []lcopenai.Option
	if rootFlags.chatModel != "" {
		chatOpts = append(chatOpts, lcopenai.WithModel(rootFlags.chatModel))
	}
	chatModel, err := lcopenai.New(chatOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	logger := log.GetDefaultLogger()
	eng := engine.New(runnable, records, index, client,
		engine.WithGenealogy(records),
		engine.WithAnswerer(answer.NewLLMAnswerer(chatModel)),
		engine.WithLogger(logger))

	return &app{
		engine:  eng,
		records: records,
		index:   index,
		client:  client,
		logger:  logger,
	}, nil
}

func (a *app) close() {
	a.records.Close()
	if c, ok := a.index.(interface{ Close() error }); ok {
		c.Close()
	}
}

// rebuildIndex re-embeds the tenant's stored documents into an
// ephemeral index. Only needed when no persistent index is configured,
// since the in-process index does not survive between invocations.
func (a *app) rebuildIndex(ctx context.Context) error {
	recs, err := a.records.ListByTenant(ctx, rootFlags.tenant)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if rec.RawDocument == "" {
			continue
		}
		embedding, err := a.client.Embed(ctx, rec.RawDocument)
		if err != nil {
			return fmt.Errorf("failed to embed stored document %s: %w", rec.ContractID, err)
		}
		err = a.index.Upsert(ctx, []vecindex.Entry{{
			ID:        rec.ContractID,
			OwnerID:   rec.ContractID,
			TenantID:  rec.TenantID,
			Text:      rec.RawDocument,
			Embedding: embedding,
		}})
		if err != nil {
			return err
		}
	}
	return nil
}

// formatForFile maps a file extension to an ingest format; unknown
// extensions fall back to content sniffing.
func formatForFile(path string) (ingest.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ingest.FormatPDF, true
	case ".html", ".htm":
		return ingest.FormatHTML, true
	case ".md", ".markdown":
		return ingest.FormatMarkdown, true
	case ".txt":
		return ingest.FormatText, true
	default:
		return "", false
	}
}
