package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seguros/internal/amqp"
	"seguros/internal/dataset"
)

// Reloader swaps in a fresh dataset snapshot
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Dataset, error)
	LoadedAt() time.Time
}

// ReloadWorker applies dataset reload messages to the in-process store
type ReloadWorker struct {
	store Reloader
}

func NewReloadWorker(store Reloader) *ReloadWorker {
	return &ReloadWorker{store: store}
}

// HandleReloadMessage reloads the dataset unless the current snapshot was
// loaded after the message was sent
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.DatasetReloadMessage) error {
	if loaded := w.store.LoadedAt(); !loaded.IsZero() && loaded.After(msg.Timestamp) {
		slog.InfoContext(ctx, "Skipping stale reload message",
			"source", msg.Source,
			"sent_at", msg.Timestamp,
			"loaded_at", loaded)
		return nil
	}

	start := time.Now()
	d, err := w.store.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload dataset: %w", err)
	}

	slog.InfoContext(ctx, "Dataset reloaded from message",
		"source", msg.Source,
		"announced_records", msg.Records,
		"records", d.Len(),
		"dropped", d.Dropped(),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// Run consumes reload messages until ctx ends
func (w *ReloadWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeDatasetReload(ctx, func(msg *amqp.DatasetReloadMessage) error {
		return w.HandleReloadMessage(ctx, msg)
	})
}
