package core

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
)

// Config carries the runtime tunables of the backend. Everything has a
// working default; a TOML file can override individual fields.
type Config struct {
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`

	Descriptors struct {
		// ViewHeapCapacity is the slot count of the GPU-visible
		// CBV/SRV/UAV heap. The heap cannot grow after creation, so
		// this must cover the worst case over all layouts.
		ViewHeapCapacity uint32 `toml:"view_heap_capacity"`
		// SamplerHeapCapacity is the slot count of the GPU-visible
		// sampler heap. Hardware caps this at 2048.
		SamplerHeapCapacity uint32 `toml:"sampler_heap_capacity"`
		// CPUPoolCapacity is the slot count of each CPU-only staging
		// pool (RTV, DSV, SRV/UAV, sampler).
		CPUPoolCapacity uint32 `toml:"cpu_pool_capacity"`
	} `toml:"descriptors"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Descriptors.ViewHeapCapacity = 4096
	c.Descriptors.SamplerHeapCapacity = 2048
	c.Descriptors.CPUPoolCapacity = 256
	return c
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an
// error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Apply pushes the settings that can change at runtime.
func (c Config) Apply() {
	SetLogLevel(c.Logging.Level)
}

// ConfigWatcher reloads a config file whenever it changes on disk and
// re-applies the runtime settings. Only the log level takes effect live;
// descriptor capacities are read once at device creation.
type ConfigWatcher struct {
	path string

	mutex   sync.RWMutex
	current Config

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

// WatchConfig loads the file and starts watching it for edits.
func WatchConfig(path string) (*ConfigWatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Apply()

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     path,
		current:  cfg,
		done:     make(chan struct{}),
		fsnotify: fsWatch,
	}
	if err := fsWatch.Add(path); err != nil {
		// The file may not exist yet; keep running on defaults.
		LogWarn("config watch for %s unavailable: %v", path, err)
	}
	go cw.start()
	return cw, nil
}

// Current returns the most recently loaded configuration.
func (cw *ConfigWatcher) Current() Config {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.current
}

func (cw *ConfigWatcher) start() {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				LogError("config reload failed: %v", err)
				continue
			}
			cw.mutex.Lock()
			cw.current = cfg
			cw.mutex.Unlock()
			cfg.Apply()
			LogInfo("config reloaded from %s", cw.path)
		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %v", err)
		}
	}
}

// Close stops the watcher. Closing twice has no effect.
func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	if cw.isClosed {
		return nil
	}
	cw.isClosed = true
	close(cw.done)
	return cw.fsnotify.Close()
}
