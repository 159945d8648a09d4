package binrec

import (
	"errors"
	"sync"

	"github.com/hupe1980/binrec/internal/resource"
)

// DefaultMaxOpenFiles is the open-file cap of a registry created with a zero
// RegistryConfig.
const DefaultMaxOpenFiles = resource.DefaultMaxOpenFiles

// RegistryConfig holds the limits of a Registry.
type RegistryConfig struct {
	// MaxOpenFiles caps the number of concurrently open files. Exceeding it
	// is treated as a leak. Default: DefaultMaxOpenFiles.
	MaxOpenFiles int64

	// MaxPipes caps the number of compression workers running at once. Opens
	// of compressed files block while all slots are taken. Default: no limit
	// beyond MaxOpenFiles.
	MaxPipes int64

	// IOLimitBytesPerSec limits the combined segment throughput of all
	// compressed files. Default: unlimited.
	IOLimitBytesPerSec int64
}

// Registry tracks open files. It enforces the open-file cap and can close
// every file it tracks, e.g. during abnormal termination.
type Registry struct {
	controller *resource.Controller
	metrics    MetricsCollector

	mu    sync.Mutex
	files []*File
}

// NewRegistry creates a registry with the given limits.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		controller: resource.NewController(resource.Config{
			MaxOpenFiles:         cfg.MaxOpenFiles,
			MaxBackgroundWorkers: cfg.MaxPipes,
			IOLimitBytesPerSec:   cfg.IOLimitBytesPerSec,
		}),
		metrics: NoopMetricsCollector{},
	}
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the registry used by files opened without
// WithRegistry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(RegistryConfig{})
	})
	return defaultRegistry
}

// SetMetricsCollector reports the open-file count of r to mc.
func (r *Registry) SetMetricsCollector(mc MetricsCollector) {
	if mc == nil {
		mc = NoopMetricsCollector{}
	}
	r.mu.Lock()
	r.metrics = mc
	r.mu.Unlock()
}

// Len returns the number of open files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Files returns the names of the open files in open order.
func (r *Registry) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.files))
	for i, f := range r.files {
		names[i] = f.name
	}
	return names
}

// CloseAll closes every open file and returns the joined close errors.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	files := append([]*File(nil), r.files...)
	r.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.close(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) add(f *File) error {
	if err := r.controller.AcquireFile(); err != nil {
		return err
	}
	r.mu.Lock()
	r.files = append(r.files, f)
	n, mc := len(r.files), r.metrics
	r.mu.Unlock()
	mc.RecordOpenFiles(n)
	return nil
}

func (r *Registry) remove(f *File) {
	r.mu.Lock()
	found := false
	for i, g := range r.files {
		if g == f {
			r.files = append(r.files[:i], r.files[i+1:]...)
			found = true
			break
		}
	}
	n, mc := len(r.files), r.metrics
	r.mu.Unlock()
	if found {
		r.controller.ReleaseFile()
		mc.RecordOpenFiles(n)
	}
}
