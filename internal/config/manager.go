package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"go.uber.org/zap"
)

// Manager holds the current configuration and swaps it when the file
// changes. Readers get a snapshot; a reload that fails validation keeps the
// previous config.
type Manager struct {
	path string
	log  *zap.SugaredLogger

	mu        sync.RWMutex
	config    *Config
	listeners []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager(path string, log *zap.SugaredLogger) (*Manager, error) {
	log = logging.OrNop(log).Named("config")

	configPath, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	config, found, err := LoadOrDefault(configPath)
	if err != nil {
		log.Errorw("failed to load initial configuration", "path", configPath, "error", err)
		return nil, err
	}
	if !found {
		log.Warnw("no config file, using defaults and environment", "path", configPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Infow("configuration loaded", "path", configPath)
	return &Manager{path: configPath, log: log, config: config}, nil
}

// NewStaticManager wraps an already built config (tests, one-shot commands).
func NewStaticManager(config *Config) *Manager {
	return &Manager{config: config, log: logging.Nop()}
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run after every successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	m.watcher = watcher

	configDir := filepath.Dir(m.path)
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.log.Infow("watching for changes", "path", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			// Save writes a temp file and renames it, which shows up as Create
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				m.log.Debugw("file change detected", "event", event.String())
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warnw("watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := Load(m.path)
	if err != nil {
		m.log.Warnw("failed to reload config", "error", err)
		return
	}

	if err := newConfig.Validate(); err != nil {
		m.log.Warnw("invalid config after reload, keeping previous", "error", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	listeners := append([]func(*Config){}, m.listeners...)
	m.mu.Unlock()

	m.log.Infow("configuration reloaded")
	for _, fn := range listeners {
		fn(newConfig)
	}
}
