package backend

import (
	"context"
	"fmt"

	"seguros/internal/log"
	"seguros/internal/source/file"
	gsheet "seguros/internal/source/google"
	"seguros/internal/source/memory"
	"seguros/internal/source/postgres"
	"seguros/internal/source/s3"
	"seguros/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case LocalBackend:
		return f.createLocalBackend(config)
	case S3Backend:
		return f.createS3Backend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLocalBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	reader := file.New(dataDir, config.FileName)

	f.logger.Info("Initialized local file backend",
		"data_directory", dataDir,
		"candidates", reader.Candidates())

	return &BackendResult{Reader: reader}, nil
}

func (f *DefaultFactory) createS3Backend(config Config) (*BackendResult, error) {
	reader := s3.New(s3.Config{
		Bucket:   config.S3Bucket,
		Prefix:   config.S3Prefix,
		Base:     config.FileName,
		Region:   config.AWSRegion,
		Endpoint: config.S3Endpoint,
	})

	f.logger.Info("Initialized S3 backend", "location", reader.String())

	return &BackendResult{Reader: reader}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Reader:  repo,
		Writer:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	reader, err := postgres.New(ctx, config.PostgresURL, config.PostgresTable)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres source: %w", err)
	}

	f.logger.Info("Initialized Postgres backend", "table", reader.String())

	return &BackendResult{
		Reader: reader,
		Cleanup: func() error {
			reader.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Sheet:           config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", cli.String())

	return &BackendResult{
		Reader: cli,
		Writer: cli,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Reader: store,
		Writer: store,
	}, nil
}
