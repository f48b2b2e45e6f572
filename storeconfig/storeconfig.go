// Package storeconfig loads optional StoreOptions tuning overrides (worker
// count, grace period, worker queue size) from a TOML or YAML file, and can
// watch that file for changes. This is ambient tuning of how the store
// runs, not persistence of the state it holds.
//
// Format is auto-detected by file extension (BurntSushi/toml + yaml.v3),
// and Watch layers fsnotify-driven reload-on-change on top.
package storeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Tuning is the subset of corestore.StoreOptions an operator may want to
// externalize without recompiling: worker count, queue size, and the
// shutdown grace period.
type Tuning struct {
	WorkerCount        int     `toml:"worker_count" yaml:"worker_count"`
	WorkerQueueSize    int     `toml:"worker_queue_size" yaml:"worker_queue_size"`
	GraceTimeInSeconds float64 `toml:"grace_time_in_seconds" yaml:"grace_time_in_seconds"`
}

// Load reads path (TOML or YAML, chosen by extension) into a Tuning value.
func Load(path string) (Tuning, error) {
	var t Tuning
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("storeconfig: read %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &t); err != nil {
			return t, fmt.Errorf("storeconfig: parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return t, fmt.Errorf("storeconfig: parse yaml %s: %w", path, err)
		}
	default:
		return t, fmt.Errorf("storeconfig: unsupported config extension %q", filepath.Ext(path))
	}
	return t, nil
}

// LoadLoose reads path into a generic map first and coerces each field
// through golobby/cast.FromType, so a loosely-typed value (e.g. the string
// "4", or a json.Number) lands in a struct field of the target type.
func LoadLoose(path string) (Tuning, error) {
	raw, err := loadMap(path)
	if err != nil {
		return Tuning{}, err
	}
	var t Tuning
	rv := reflect.ValueOf(&t).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("yaml")
		v, ok := raw[tag]
		if !ok {
			continue
		}
		converted, err := cast.FromType(v, rt.Field(i).Type)
		if err != nil {
			continue
		}
		rv.Field(i).Set(reflect.ValueOf(converted))
	}
	return t, nil
}

func loadMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storeconfig: read %s: %w", path, err)
	}
	raw := make(map[string]any)
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("storeconfig: parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("storeconfig: parse yaml %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("storeconfig: unsupported config extension %q", filepath.Ext(path))
	}
	return raw, nil
}

// Watcher reloads Tuning from a file whenever it changes on disk and
// invokes onChange with the new value.
type Watcher struct {
	path     string
	onChange func(Tuning)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopped  bool
}

// Watch starts watching path for writes, calling onChange with each
// successfully reloaded Tuning. Call Close to stop.
func Watch(path string, onChange func(Tuning)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storeconfig: new watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("storeconfig: watch dir for %s: %w", path, err)
	}
	w := &Watcher{path: path, onChange: onChange, watcher: fw}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for event := range w.watcher.Events {
		if filepath.Clean(event.Name) != filepath.Clean(w.path) {
			continue
		}
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		t, err := Load(w.path)
		if err != nil {
			continue
		}
		w.onChange(t)
	}
}

// Close stops the underlying fsnotify watcher. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	return w.watcher.Close()
}
