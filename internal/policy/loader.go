package policy

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ErrNoPolicies is returned for a file without a `policies` key. An empty
// list must be written out as `policies: []`.
var ErrNoPolicies = errors.New("policy file has no policies key")

// LoadFile reads the `policies` list from a YAML, JSON or TOML file.
func LoadFile(path string, schemas SchemaSource) ([]Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return decode(v, schemas)
}

func decode(v *viper.Viper, schemas SchemaSource) ([]Policy, error) {
	if !v.IsSet("policies") {
		return nil, ErrNoPolicies
	}
	var specs []Spec
	if err := v.UnmarshalKey("policies", &specs); err != nil {
		return nil, fmt.Errorf("decode policies: %w", err)
	}
	return Build(specs, schemas)
}

// Watcher keeps an Engine in sync with a policy file. An invalid edit keeps
// the previous list in force.
type Watcher struct {
	path    string
	v       *viper.Viper
	engine  *Engine
	schemas SchemaSource
	reloads atomic.Int64

	mu      sync.Mutex // serialises reloads
	fsw     *fsnotify.Watcher
	done    chan struct{}
	closeMu sync.Once
}

// NewWatcher loads path into engine once. Call Start to follow changes.
func NewWatcher(path string, engine *Engine, schemas SchemaSource) (*Watcher, error) {
	w := &Watcher{path: filepath.Clean(path), v: viper.New(), engine: engine, schemas: schemas}
	w.v.SetConfigFile(w.path)
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Start follows changes to the file until Close. The directory is watched
// so editors that replace the file on save are seen too.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch policy file: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch policy file: %w", err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	go w.loop()
	log.Info().Str("file", w.path).Msg("watching policy file")
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := w.Reload(); err != nil {
				log.Error().Err(err).Str("file", e.Name).Str("op", e.Op.String()).Msg("policy reload rejected, keeping previous policies")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("file", w.path).Msg("policy watch error")
		}
	}
}

// Close stops watching. It is safe to call without Start and more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeMu.Do(func() {
		if w.fsw == nil {
			return
		}
		err = w.fsw.Close()
		<-w.done
		log.Info().Str("file", w.path).Msg("stopped watching policy file")
	})
	return err
}

// Reload re-reads the file and swaps the engine's list.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	policies, err := decode(w.v, w.schemas)
	if err != nil {
		return err
	}
	w.engine.Replace(policies)
	n := w.reloads.Add(1)
	evt := log.Info()
	if len(policies) == 0 {
		evt = log.Warn()
	}
	evt.Str("file", w.path).Int("policies", len(policies)).Int64("generation", n).Msg("policies loaded")
	return nil
}

// Generation counts successful loads.
func (w *Watcher) Generation() int64 {
	return w.reloads.Load()
}
