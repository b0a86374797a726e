package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nowa-engine/ragquery/internal/config"
	"github.com/nowa-engine/ragquery/internal/domain"
	logpkg "github.com/nowa-engine/ragquery/internal/logger"
	"github.com/nowa-engine/ragquery/internal/metrics"
	"github.com/nowa-engine/ragquery/internal/transport/httpclient"
	"github.com/nowa-engine/ragquery/internal/transport/ollama"
	openaiEmb "github.com/nowa-engine/ragquery/internal/transport/openai"
	"github.com/nowa-engine/ragquery/internal/transport/qdrant"
	embeddinguc "github.com/nowa-engine/ragquery/internal/usecase/embedding"
	healthuc "github.com/nowa-engine/ragquery/internal/usecase/health"
	queryuc "github.com/nowa-engine/ragquery/internal/usecase/query"
	"github.com/nowa-engine/ragquery/internal/version"
)

const logFileName = "ragquery.log"

// errReported marks a failure that has already been printed.
var errReported = errors.New("reported")

type options struct {
	question         string
	k                int
	qdrantURL        string
	qdrantAPIKey     string
	ollamaURL        string
	model            string
	provider         string
	collectionText   string
	collectionAssets string
	configPath       string
	logFile          string
	logLevel         string
	noHealth         bool
	metricsTextfile  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ragquery [question]",
		Short: "Embed a question and search the RAG collections for the closest chunks",
		Long: "ragquery embeds a natural-language question, searches the text and asset collections\n" +
			"in Qdrant and prints one line per hit. A diagnostic trace is appended to " + logFileName + ".",
		Args:          cobra.ArbitraryArgs,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("question") {
				opts.question = strings.Join(args, " ")
			}
			return execute(cmd.Flags(), opts, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.question, "question", "", "question text (alternative to the positional argument)")
	f.IntVar(&opts.k, "k", domain.DefaultK, "hits per collection, clamped to [1,20]")
	f.StringVar(&opts.qdrantURL, "qdrant", "", "Qdrant base URL (default http://localhost:6333)")
	f.StringVar(&opts.qdrantAPIKey, "qdrant-api-key", "", "Qdrant api-key header")
	f.StringVar(&opts.ollamaURL, "ollama", "", "Ollama base URL (default http://localhost:11434)")
	f.StringVar(&opts.model, "model", "", "embedding model (default nomic-embed-text)")
	f.StringVar(&opts.provider, "provider", "", "embedding provider: ollama or openai")
	f.StringVar(&opts.collectionText, "collection-text", "", "text chunk collection (default nowa_rag_text)")
	f.StringVar(&opts.collectionAssets, "collection-assets", "",
		"asset catalog collection (default nowa_asset_catalog, empty disables)")
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVar(&opts.logFile, "log-file", "", "diagnostic log path (default "+logFileName+" beside the executable)")
	f.StringVar(&opts.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	f.BoolVar(&opts.noHealth, "no-health", false, "skip the pre-flight health probe")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")

	return cmd
}

// resolveConfig applies flags over file and environment settings. Only flags the caller set take effect.
func resolveConfig(flags *pflag.FlagSet, opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	overrides := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"qdrant", &cfg.Qdrant.URL, opts.qdrantURL},
		{"qdrant-api-key", &cfg.Qdrant.APIKey, opts.qdrantAPIKey},
		{"ollama", &cfg.Ollama.URL, opts.ollamaURL},
		{"provider", &cfg.Embedding.Provider, opts.provider},
		{"collection-text", &cfg.Collections.Text, opts.collectionText},
		{"collection-assets", &cfg.Collections.Assets, opts.collectionAssets},
		{"log-file", &cfg.Log.File, opts.logFile},
		{"log-level", &cfg.Log.Level, opts.logLevel},
		{"metrics-textfile", &cfg.Metrics.Textfile, opts.metricsTextfile},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.val
		}
	}
	if flags.Changed("model") {
		if cfg.Embedding.Provider == config.ProviderOpenAI {
			cfg.OpenAI.Model = opts.model
		} else {
			cfg.Ollama.Model = opts.model
		}
	}
	if flags.Changed("k") {
		cfg.Search.K = opts.k
	}
	if opts.noHealth {
		cfg.Health.Enabled = false
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func execute(flags *pflag.FlagSet, opts options, stdout io.Writer) error {
	cfg, err := resolveConfig(flags, opts)
	if err != nil {
		return err
	}

	logPath := cfg.Log.File
	if logPath == "" {
		logPath = logpkg.DefaultPath(logFileName)
	}
	sink, err := logpkg.OpenSink(logPath, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("open diagnostic log: %w", err)
	}
	defer func() { _ = sink.Close() }()

	log := sink.Logger()
	log.Info("ragquery",
		zap.String("version", version.String()),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("qdrant", cfg.Qdrant.URL),
	)
	for _, w := range cfg.Warnings() {
		log.Warn("config warning", zap.String("detail", w))
	}

	m := metrics.New()

	svc := queryuc.New(buildEmbedder(cfg, log, m), buildSearcher(cfg, log), sink, stdout).
		WithRecorder(m)
	if cfg.Health.Enabled {
		svc.WithHealth(buildHealth(cfg, log, m))
	}

	_, runErr := svc.Execute(context.Background(), queryuc.Request{
		Question:    opts.question,
		K:           cfg.Search.K,
		Collections: cfg.SearchCollections(),
	})

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("Failed to write metrics textfile",
			zap.String("path", cfg.Metrics.Textfile),
			zap.Error(err),
		)
	}

	if runErr != nil {
		fmt.Fprintf(stdout, "query failed: %s\n", queryuc.UserMessage(runErr))
		fmt.Fprintf(stdout, "see log: %s (run %s)\n", sink.Path(), sink.RunID())
		return errReported
	}
	return nil
}

// buildEmbedder is the embedding composition root: provider -> instrumented decorator.
func buildEmbedder(cfg config.Config, log *zap.Logger, m *metrics.Metrics) queryuc.Embedder {
	var (
		inner domain.Embedder
		name  string
		model string
	)
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.OpenAI.Dimensions,
			Timeout:    cfg.EmbeddingTimeout(),
		})
		inner, name, model = e, e.Provider(), e.Model()
	default:
		e := ollama.NewEmbedder(&ollama.Config{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.EmbeddingTimeout(),
			Logger:  log,
		})
		inner, name, model = e, e.Provider(), e.Model()
	}
	return embeddinguc.NewInstrumentedEmbedder(inner, name, model, m)
}

func buildSearcher(cfg config.Config, log *zap.Logger) *qdrant.Client {
	return qdrant.NewClient(&qdrant.Config{
		BaseURL: cfg.Qdrant.URL,
		APIKey:  cfg.Qdrant.APIKey,
		Timeout: cfg.SearchTimeout(),
		Logger:  log,
	})
}

func buildHealth(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *healthuc.Service {
	embedTarget := healthuc.Target{
		Service: config.ProviderOllama,
		URL:     httpclient.NormalizeURL(cfg.Ollama.URL) + ollama.HealthPath,
	}
	if cfg.Embedding.Provider == config.ProviderOpenAI {
		embedTarget = healthuc.Target{
			Service: config.ProviderOpenAI,
			URL:     httpclient.NormalizeURL(cfg.OpenAI.BaseURL) + "/models",
		}
	}
	return healthuc.New(
		healthuc.NewHTTPProbe(cfg.HealthTimeout(), log),
		embedTarget,
		healthuc.Target{Service: "qdrant", URL: httpclient.NormalizeURL(cfg.Qdrant.URL) + qdrant.HealthPath},
	).WithRecorder(m)
}
