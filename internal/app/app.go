package app

import (
	"context"
	"time"

	"github.com/dianihealth/carebridge/internal/chatbot"
	"github.com/dianihealth/carebridge/internal/config"
	"github.com/dianihealth/carebridge/internal/core"
	db "github.com/dianihealth/carebridge/internal/core/database"
	"github.com/dianihealth/carebridge/internal/core/llm"
	objectclient "github.com/dianihealth/carebridge/internal/core/object-client"
	"github.com/dianihealth/carebridge/internal/extraction"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type App struct {
	DBClient     *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Processor    *extraction.FileProcessor
	Server       *Server
	Log          *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("object client initialized and ready")

	extractor := extraction.NewDocconvExtractor(log)
	chunks := extraction.NewChunkWriter(dbClient, log)
	processor := extraction.NewFileProcessor(dbClient, objClient, extractor, chunks, cfg.BucketName, log)
	processor.Start(ctx, cfg.Workers)

	// The chatbot runs degraded when keys are missing: no completion key
	// means a 500 on /api/chatbot, no search key means empty web context.
	var chat core.ChatProvider
	if cfg.OpenAIKey != "" {
		provider, err := llm.NewOpenAIChat(cfg.OpenAIKey, cfg.GenModel, cfg.OpenAIURL)
		if err != nil {
			return nil, err
		}
		chat = provider
	} else {
		log.Warn("OPENAI_API_KEY not set; chatbot completions disabled")
	}

	var search core.SearchProvider
	if cfg.SerperKey != "" {
		provider, err := chatbot.NewSerperClient(cfg.SerperKey, cfg.SerperURL)
		if err != nil {
			return nil, err
		}
		search = provider
	} else {
		log.Warn("SERPER_API_KEY not set; internet queries get no web context")
	}

	assembler := chatbot.NewAssembler(dbClient, objClient, extractor, chunks, chatbot.NewRegexReferenceExtractor(), cfg.BucketName, log)
	searcher := chatbot.NewWebSearcher(search, log)
	dispatcher := chatbot.NewDispatcher(assembler, searcher, chat, log)

	server := NewServer(cfg, dbClient, objClient, processor, dispatcher, log)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Processor:    processor,
		Server:       server,
		Log:          log,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
