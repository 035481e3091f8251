package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-agent/internal/ai"
	"github.com/garyjia/invoice-agent/internal/config"
	"github.com/garyjia/invoice-agent/internal/extraction"
	"github.com/garyjia/invoice-agent/internal/invoice"
	"github.com/garyjia/invoice-agent/internal/render"
	"github.com/garyjia/invoice-agent/internal/repository"
	"github.com/garyjia/invoice-agent/internal/service"
	"github.com/garyjia/invoice-agent/pkg/database"
	"github.com/garyjia/invoice-agent/pkg/utils"
)

// App wires configuration, storage and services for one CLI invocation.
// The LLM gateway is constructed unconditionally but only contacted by
// commands that need it, so purely local commands work with no model
// endpoint running.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *database.DB
	Clients  *repository.ClientRepository
	Projects *repository.ProjectRepository
	Records  *repository.WorkRecordRepository
	Invoices *repository.InvoiceRepository
	WorkLog  *service.WorkLogService
	Invoice  *service.InvoiceService
	Renderer render.Renderer
}

func newApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(repository.Migrations); err != nil {
		db.Close()
		return nil, err
	}

	clients := repository.NewClientRepository(db.DB, logger)
	projects := repository.NewProjectRepository(db.DB, logger)
	records := repository.NewWorkRecordRepository(db.DB, logger)
	invoices := repository.NewInvoiceRepository(db.DB, logger)

	gateway := ai.NewGateway(ai.Config{
		BaseURL:        cfg.Model.BaseURL,
		APIKey:         cfg.Model.APIKey,
		Model:          cfg.Model.Name,
		Timeout:        cfg.Model.Timeout,
		MaxRetries:     cfg.Model.MaxRetries,
		InitialBackoff: cfg.Model.InitialBackoff,
		CacheSize:      cfg.Model.CacheSize,
		CacheTTL:       cfg.Model.CacheTTL,
	}, logger)

	extractor := extraction.NewExtractor(gateway, cfg.Extraction.Temperature, cfg.Extraction.MaxTokens, logger)

	var summarizer invoice.Summarizer
	if cfg.Extraction.Summarize {
		summarizer = invoice.NewAISummarizer(gateway)
	}
	engine := invoice.NewEngine(summarizer, logger)
	assembler := invoice.NewAssembler()

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Clients:  clients,
		Projects: projects,
		Records:  records,
		Invoices: invoices,
		WorkLog:  service.NewWorkLogService(extractor, clients, projects, records, logger),
		Invoice: service.NewInvoiceService(
			db, engine, assembler, clients, projects, records, invoices,
			cfg.Invoice.DueInDays, logger,
		),
		Renderer: render.NewTextRenderer(),
	}, nil
}

// Close releases the database and flushes the logger.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
}
