package dataset

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"seguros/internal/log"
	"seguros/internal/source"
)

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Store holds the process-wide dataset. The first load happens once no
// matter how many callers race for it; Reload swaps in a new snapshot
// without disturbing readers holding the old one.
type Store struct {
	reader source.RecordReader
	logger *log.Logger
	sl     *log.StructuredLogger

	group   singleflight.Group
	current atomic.Pointer[Dataset]

	mu    sync.Mutex
	hooks []func(*Dataset)
}

// NewStore creates an empty store over reader.
func NewStore(reader source.RecordReader, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentDataset)
	return &Store{reader: reader, logger: logger, sl: log.NewStructuredLogger(logger)}
}

// OnReload registers fn to run after every successful reload.
func (s *Store) OnReload(fn func(*Dataset)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Load performs the first load, or returns the dataset already loaded.
// Source errors are returned as is and not retried.
func (s *Store) Load(ctx context.Context) (*Dataset, error) {
	if d := s.current.Load(); d != nil {
		return d, nil
	}
	v, err, _ := s.group.Do("load", func() (interface{}, error) {
		if d := s.current.Load(); d != nil {
			return d, nil
		}
		d, err := s.read(ctx, log.OpLoad)
		if err != nil {
			return nil, err
		}
		s.current.Store(d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

// Get returns the loaded dataset, loading it lazily if needed.
func (s *Store) Get(ctx context.Context) (*Dataset, error) {
	return s.Load(ctx)
}

// Current returns the loaded dataset without touching the source.
func (s *Store) Current() (*Dataset, error) {
	if d := s.current.Load(); d != nil {
		return d, nil
	}
	return nil, ErrNotLoaded
}

// Reload re-reads the source and swaps the snapshot. On failure the
// previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Dataset, error) {
	v, err, _ := s.group.Do("reload", func() (interface{}, error) {
		d, err := s.read(ctx, log.OpReload)
		if err != nil {
			return nil, err
		}
		s.current.Store(d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	d := v.(*Dataset)

	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(d)
	}
	return d, nil
}

// Loaded reports whether a dataset is available.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// LoadedAt returns when the current dataset was built; zero if none.
func (s *Store) LoadedAt() time.Time {
	if d := s.current.Load(); d != nil {
		return d.LoadedAt()
	}
	return time.Time{}
}

func (s *Store) read(ctx context.Context, op string) (*Dataset, error) {
	start := time.Now()
	name := describe(s.reader)

	raw, err := s.reader.ReadRecords(ctx)
	if err != nil {
		s.sl.LogError(ctx, "Dataset load failed", err, op,
			log.NewFields().WithLoad(name, 0, 0))
		return nil, fmt.Errorf("read records from %s: %w", name, err)
	}

	d := Build(raw, name)
	if d.Dropped() > 0 {
		s.logger.WarnContext(ctx, "Dropped rows with malformed period",
			log.FieldDropped, d.Dropped(), log.FieldSource, name)
	}
	s.sl.LogDatasetLoaded(ctx, op, name, d.Len(), d.Dropped(), time.Since(start).Milliseconds())
	return d, nil
}

func describe(r source.RecordReader) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}
