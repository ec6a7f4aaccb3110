// Package app wires configuration into a running gateway: staging store,
// document parser, language model chain, warehouse executor, the pipeline
// machine and analysis agent over them, and the HTTP server in front.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/analysis"
	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/config"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/handler"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/run"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/server"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	llmclient "github.com/dharaneesh71/Financeflow-ai/internal/llmClient"
	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

type App struct {
	server *server.Server
	exec   warehouse.Executor
	client llm.LLMClient
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	lg := zerolog.New(os.Stderr).With().Timestamp().Str("service", "financeflow").Logger()

	docs, err := newDocStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init staging store: %w", err)
	}
	parser, err := newParser(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("init document parser: %w", err)
	}
	client, err := newLLM(ctx, cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("init language model: %w", err)
	}
	exec, err := warehouse.Open(warehouse.Config{
		Backend:  cfg.Warehouse.Backend,
		DSN:      cfg.Warehouse.DSN,
		Path:     cfg.Warehouse.Path,
		Database: cfg.Warehouse.Database,
		Schema:   cfg.Warehouse.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	machine := pipeline.NewMachine(pipeline.Deps{
		LLM:    client,
		Docs:   docs,
		Parser: parser,
		Exec:   exec,
		Log:    lg,
	})
	agent := analysis.New(client, exec, cfg.Warehouse.Database, cfg.Warehouse.Schema, lg)
	runs := run.NewRegistry()

	api := handler.New(docs, machine, agent, runs, cfg.Warehouse.Database, cfg.Warehouse.Schema, lg)
	srv := server.New(cfg.Port, server.NewMux(api), lg)

	return &App{server: srv, exec: exec, client: client}, nil
}

func newDocStore(cfg *config.Config) (docstore.Store, error) {
	var backend docstore.Store
	if cfg.Staging.S3 {
		s3, err := docstore.NewS3Store(docstore.S3Config{
			Endpoint:  cfg.Staging.Endpoint,
			Region:    cfg.Staging.Region,
			AccessKey: cfg.Staging.AccessKey,
			SecretKey: cfg.Staging.SecretKey,
			Bucket:    cfg.Staging.Bucket,
			UseSSL:    cfg.Staging.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		backend = s3
	} else {
		fs, err := docstore.NewFileStore(cfg.Staging.Dir)
		if err != nil {
			return nil, err
		}
		backend = fs
	}
	return docstore.Cached(backend, 0)
}

func newParser(cfg *config.Config, lg zerolog.Logger) (docai.Parser, error) {
	if cfg.DocAI.Mock {
		return docai.MockParser{}, nil
	}
	return docai.NewParseClient(docai.Config{APIKey: cfg.DocAI.APIKey}, lg)
}

func newLLM(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (llm.LLMClient, error) {
	var inner llm.LLMClient
	if cfg.Gemini.Fake {
		inner = llm.NewFakeClient()
	} else {
		gem, err := llmclient.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		inner = gem
	}
	return llm.NewResilientClient(inner, llm.Config{
		MinInterval: cfg.LLM.MinInterval,
		MaxAttempts: cfg.LLM.MaxAttempts,
		BackoffBase: cfg.LLM.BackoffBase,
	}, lg), nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := a.exec.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
