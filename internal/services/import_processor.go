package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seguros/internal/source"
)

// ImportProcessorConfig holds configuration for the import processor
type ImportProcessorConfig struct {
	// Interval is how often the source is imported again (default: 1h)
	Interval time.Duration

	// MaxRetries is how many times a failed import is retried within one cycle (default: 3)
	MaxRetries int

	// RetryDelay is the pause between retries (default: 30s)
	RetryDelay time.Duration
}

// DefaultImportProcessorConfig returns sensible defaults
func DefaultImportProcessorConfig() ImportProcessorConfig {
	return ImportProcessorConfig{
		Interval:   1 * time.Hour,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
	}
}

// ImportProcessor periodically copies the upstream source into the SQLite
// store through the ImportService.
type ImportProcessor struct {
	service *ImportService
	source  source.RecordReader
	config  ImportProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(service *ImportService, src source.RecordReader, config ImportProcessorConfig) *ImportProcessor {
	return &ImportProcessor{
		service: service,
		source:  src,
		config:  config,
	}
}

// Start begins the import loop. Returns an error if already running.
func (p *ImportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("import processor is already running")
	}
	if p.service == nil || p.source == nil {
		p.mu.Unlock()
		return fmt.Errorf("import processor needs a service and a source")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Import processor started",
		"interval", p.config.Interval,
		"source", describe(p.source))

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ImportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Import processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Import processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ImportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *ImportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Import immediately on startup
	p.runOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce imports the source, retrying up to MaxRetries times
func (p *ImportProcessor) runOnce(ctx context.Context) {
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		res, err := p.service.Import(ctx, p.source)
		if err == nil {
			slog.InfoContext(ctx, "Scheduled import completed",
				"batch_id", res.ID,
				"records", res.Records)
			return
		}

		slog.ErrorContext(ctx, "Scheduled import failed",
			"attempt", attempt+1,
			"max_retries", p.config.MaxRetries,
			"error", err)

		if attempt == p.config.MaxRetries {
			return
		}
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(p.config.RetryDelay):
		}
	}
}
