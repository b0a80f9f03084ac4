package configsource

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/agentflow/config"
	"github.com/BaSui01/agentflow/gatewaytypes"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk shape: a flat list of providers. Reused
// as-is rather than nested under a larger config struct, since this
// package's sole responsibility is the provider snapshot ConfigSource
// exposes.
type fileDocument struct {
	Providers []gatewaytypes.Provider `yaml:"providers"`
}

// FileSource is the reference ConfigSource: a YAML file reloaded whenever
// it changes on disk, watched via the teacher's polling FileWatcher.
type FileSource struct {
	path      string
	logger    *zap.Logger
	snapshot  atomic.Pointer[[]gatewaytypes.Provider]
	watcher   *config.FileWatcher
	cancel    context.CancelFunc
	mu        sync.Mutex
	subs      []chan struct{}
}

// NewFileSource loads path once synchronously, then starts watching it for
// changes in the background. Returns an error only if the initial load
// fails; the gateway has nothing useful to serve without a first snapshot.
func NewFileSource(path string, logger *zap.Logger) (*FileSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fs := &FileSource{path: path, logger: logger}
	if err := fs.reload(); err != nil {
		return nil, err
	}

	watcher, err := config.NewFileWatcher([]string{path}, config.WithWatcherLogger(logger))
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(config.FileEvent) { fs.onFileEvent() })

	ctx, cancel := context.WithCancel(context.Background())
	if err := watcher.Start(ctx); err != nil {
		cancel()
		return nil, err
	}
	fs.watcher = watcher
	fs.cancel = cancel
	return fs, nil
}

func (fs *FileSource) onFileEvent() {
	if err := fs.reload(); err != nil {
		fs.logger.Error("configsource: reload failed, keeping previous snapshot", zap.Error(err), zap.String("path", fs.path))
		return
	}
	fs.notify()
}

func (fs *FileSource) reload() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return err
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	providers := doc.Providers
	fs.snapshot.Store(&providers)
	return nil
}

func (fs *FileSource) notify() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, ch := range fs.subs {
		select {
		case ch <- struct{}{}:
		default: // slow subscriber: drop, it'll see the latest Providers() next read
		}
	}
}

// Providers returns the current snapshot.
func (fs *FileSource) Providers() []gatewaytypes.Provider {
	p := fs.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Subscribe returns a new reload-notification channel.
func (fs *FileSource) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	fs.mu.Lock()
	fs.subs = append(fs.subs, ch)
	fs.mu.Unlock()
	return ch
}

// Close stops the background file watcher.
func (fs *FileSource) Close() error {
	if fs.cancel != nil {
		fs.cancel()
	}
	if fs.watcher != nil {
		return fs.watcher.Stop()
	}
	return nil
}
