package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"transcript-rag/internal/chunker"
	"transcript-rag/internal/config"
	"transcript-rag/internal/embedding"
	"transcript-rag/internal/helper"
	"transcript-rag/internal/intent"
	"transcript-rag/internal/llmservice"
	"transcript-rag/internal/models"
	"transcript-rag/internal/parser"
	"transcript-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the transcript (.json, .srt, .txt, .md, .docx, .pdf, .xlsx)")
	query := flag.String("query", "", "Query to search the transcript for")
	limit := flag.Int("limit", 0, "Maximum number of results (0 uses rag.default_limit)")
	asJSON := flag.Bool("json", false, "Print results as JSON")
	answer := flag.Bool("answer", false, "Answer the query from the results with the inference model")
	dryRun := flag.Bool("dry-run", false, "Print the chunks of every segment and exit")
	interactive := flag.Bool("interactive", false, "Read queries from stdin, one per line")
	flag.Parse()

	cfg := loadConfig(*configPath)
	setupLogger(cfg.Log.Level)

	if *filePath == "" {
		log.Fatal().Msg("Please provide a transcript using the -file flag")
	}
	if *query == "" && !*interactive && !*dryRun {
		log.Fatal().Msg("Please provide a query using the -query flag, or use -interactive")
	}

	segments, err := parser.ParseTranscript(*filePath, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing transcript")
	}

	if *dryRun {
		printChunks(segments)
		return
	}

	ctx := context.Background()
	embedder, closeEmbedder := newEmbedder(cfg)
	defer closeEmbedder()

	session, err := rag.NewSession(cfg.RAG, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	worker := rag.NewWorker(session, cfg.RAG.QueueSize)
	defer worker.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logProgress(worker.Events())
	}()

	start := time.Now()
	if err := worker.Index(ctx, segments); err != nil {
		log.Fatal().Err(err).Msg("Error indexing transcript")
	}
	log.Info().Dur("took", time.Since(start)).Int("passages", session.Count()).Msg("Index ready")

	run := func(q string) {
		results, err := worker.Search(ctx, q, *limit)
		if err != nil {
			log.Error().Err(err).Msg("Error searching")
			return
		}
		printResults(q, results, *asJSON)
		if *answer {
			answerQuery(ctx, cfg, q, results)
		}
	}

	if *query != "" {
		run(*query)
	}
	if *interactive {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			if q := strings.TrimSpace(scanner.Text()); q != "" {
				run(q)
			}
			fmt.Print("> ")
		}
		fmt.Println()
	}

	if err := worker.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing worker")
	}
	<-done
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		return config.Default()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	return cfg
}

// logs go to stderr so -json output stays clean
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, func()) {
	if strings.EqualFold(cfg.EmbedLLM.Provider, config.ProviderONNX) {
		model, err := embedding.NewLocalModel(&cfg.EmbedLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing embedder")
		}
		return embedding.Normalize(model), func() {
			if err := model.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing embedding model")
			}
		}
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	return embedder, func() {}
}

func logProgress(events <-chan models.ProgressEvent) {
	for ev := range events {
		if ev.Err != nil {
			log.Error().Err(ev.Err).Str("stage", ev.Stage).Msg(ev.Message)
			continue
		}
		log.Info().Str("stage", ev.Stage).Int("percent", ev.Percent).Msg(ev.Message)
	}
}

func printChunks(segments []models.TranscriptSegment) {
	type segmentChunks struct {
		Segment models.TranscriptSegment `json:"segment"`
		Chunks  []models.Chunk           `json:"chunks"`
	}
	out := make([]segmentChunks, 0, len(segments))
	for _, s := range segments {
		out = append(out, segmentChunks{Segment: s, Chunks: chunker.Split(s.Text)})
	}
	helper.PrettyPrint(out)
}

func printResults(query string, results []models.SearchResult, asJSON bool) {
	if asJSON {
		b, err := json.Marshal(struct {
			Query   string                `json:"query"`
			Intents []string              `json:"intents"`
			Results []models.SearchResult `json:"results"`
		}{query, intent.Strings(intent.Classify(query)), results})
		if err != nil {
			log.Error().Err(err).Msg("Error encoding results")
			return
		}
		fmt.Println(string(b))
		return
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	bold.Printf("Query: %s\n", query)
	dim.Printf("Intents: %s\n\n", strings.Join(intent.Strings(intent.Classify(query)), ", "))

	if len(results) == 0 {
		color.Yellow("No matching passages.\n")
		return
	}
	for i, r := range results {
		color.Cyan("%2d. [%s - %s] %s (score %.2f)\n", i+1,
			helper.FormatTimestamp(r.Segment.Start),
			helper.FormatTimestamp(r.Segment.End),
			r.Segment.ID, r.Score)
		fmt.Printf("    %s\n\n", r.Segment.Text)
	}
}

func answerQuery(ctx context.Context, cfg *config.Config, query string, results []models.SearchResult) {
	llm, err := llmservice.NewModel(&cfg.InferenceLLM)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing inference model")
		return
	}
	response, err := rag.Answer(ctx, llm, query, results)
	if errors.Is(err, rag.ErrNoPassages) {
		color.Yellow("Nothing to answer from.\n")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Error generating answer")
		return
	}

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	color.Green("%s\n\n", response.Content)
}
