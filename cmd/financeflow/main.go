package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	llmclient "github.com/dharaneesh71/Financeflow-ai/internal/llmClient"
	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

func main() {
	files := flag.String("files", "", "comma-separated documents to process")
	prompt := flag.String("prompt", "", "focus hint for metric suggestions")
	metricsFile := flag.String("metrics", "", "YAML metric set; selects the process branch")
	database := flag.String("database", "FINANCIAL_DATA", "warehouse database name")
	schemaName := flag.String("schema", "PUBLIC", "warehouse schema name")
	backend := flag.String("backend", "sqlite", "warehouse backend: sqlite, postgres, memory")
	dbPath := flag.String("db", filepath.Join("tmp", "financeflow.db"), "sqlite database file")
	stagingDir := flag.String("staging", "uploads", "staging directory for documents and markdown")
	model := flag.String("model", "gemini-2.0-flash", "Gemini model id")
	out := flag.String("out", "", "write the final state JSON here instead of stdout")
	star := flag.Bool("star", false, "print the reporting star schema DDL and exit")
	flag.Parse()

	if *star {
		fmt.Println(schema.BuildStarSchema().DDL())
		return
	}
	if *files == "" {
		log.Fatal("-files is required")
	}

	_ = godotenv.Load()
	ctx := context.Background()
	lg := zerolog.New(os.Stderr).With().Timestamp().Logger()

	docs, err := docstore.NewFileStore(*stagingDir)
	if err != nil {
		log.Fatal(err)
	}
	keys, err := stageFiles(ctx, docs, strings.Split(*files, ","))
	if err != nil {
		log.Fatal(err)
	}

	var selected metric.Set
	if *metricsFile != "" {
		selected, err = loadMetricSet(*metricsFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	client, err := newLLM(ctx, *model, lg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	parser, err := newParser(lg)
	if err != nil {
		log.Fatal(err)
	}

	exec, err := warehouse.Open(warehouse.Config{
		Backend:  *backend,
		DSN:      os.Getenv("WAREHOUSE_DSN"),
		Path:     *dbPath,
		Database: *database,
		Schema:   *schemaName,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer exec.Close()

	machine := pipeline.NewMachine(pipeline.Deps{
		LLM:    client,
		Docs:   docs,
		Parser: parser,
		Exec:   exec,
		Log:    lg,
	})

	state := pipeline.NewState(keys, *prompt, selected, *database, *schemaName)
	final, runErr := machine.Run(ctx, state)

	if err := writeState(final, *out); err != nil {
		log.Fatal(err)
	}
	if runErr != nil {
		log.Printf("batch halted: %v", runErr)
		exec.Close()
		client.Close()
		os.Exit(1)
	}
}

func stageFiles(ctx context.Context, docs docstore.Store, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		key := docstore.SafeKey(filepath.Base(p))
		if err := docs.Put(ctx, key, content); err != nil {
			return nil, fmt.Errorf("stage %s: %w", p, err)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no documents to process")
	}
	return keys, nil
}

type metricsDoc struct {
	Metrics metric.Set `yaml:"metrics"`
}

func loadMetricSet(path string) (metric.Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metric set: %w", err)
	}
	var doc metricsDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse metric set: %w", err)
	}
	if len(doc.Metrics) == 0 {
		return nil, fmt.Errorf("metric set %s is empty", path)
	}
	if err := doc.Metrics.Validate(); err != nil {
		return nil, fmt.Errorf("metric set %s: %w", path, err)
	}
	return doc.Metrics, nil
}

func newLLM(ctx context.Context, model string, lg zerolog.Logger) (llm.LLMClient, error) {
	var inner llm.LLMClient
	if envBool("LLM_FAKE") {
		inner = llm.NewFakeClient()
	} else {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		gem, err := llmclient.NewGeminiClient(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		inner = gem
	}
	return llm.NewResilientClient(inner, llm.Config{}, lg), nil
}

func newParser(lg zerolog.Logger) (docai.Parser, error) {
	if envBool("DOCAI_MOCK") {
		return docai.MockParser{}, nil
	}
	apiKey := os.Getenv("LANDINGAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("LANDINGAI_API_KEY is not set")
	}
	return docai.NewParseClient(docai.Config{APIKey: apiKey}, lg)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func writeState(s *pipeline.State, out string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println(string(b))
		return nil
	}
	return os.WriteFile(out, b, 0o644)
}
