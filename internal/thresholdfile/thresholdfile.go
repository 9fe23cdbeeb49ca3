// Package thresholdfile keeps the stored threshold configuration in sync
// with an operator-edited YAML file.
package thresholdfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// Load reads a threshold file. Fields left out keep their defaults.
// Unknown fields and inverted ranges are rejected.
func Load(path string) (*models.ThresholdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read threshold file: %w", err)
	}
	return Parse(data)
}

// Parse decodes threshold YAML.
func Parse(data []byte) (*models.ThresholdConfig, error) {
	cfg := models.DefaultThresholdConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse threshold file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate threshold file: %w", err)
	}
	return cfg, nil
}

// Saver persists a threshold configuration.
type Saver interface {
	Save(ctx context.Context, cfg *models.ThresholdConfig) error
}

// Watcher applies the file to the store on start and after every change.
// A file that fails to parse is logged and the stored configuration is kept.
type Watcher struct {
	path     string
	saver    Saver
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	applied int
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// editors that replace the file on save are handled.
func NewWatcher(path string, saver Saver) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		saver:    saver,
		debounce: 200 * time.Millisecond,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start applies the current file, if present, and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.path); err == nil {
		if err := w.Apply(ctx); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	w.watcher.Close()
	w.wg.Wait()
}

// Apply loads the file and saves it.
func (w *Watcher) Apply(ctx context.Context) error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	if err := w.saver.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}

	w.mu.Lock()
	w.applied++
	w.mu.Unlock()
	log.Printf("thresholds applied from %s: temp %g-%g, humidity %g-%g",
		w.path, cfg.TempMin, cfg.TempMax, cfg.HumidityMin, cfg.HumidityMax)
	return nil
}

// Applied returns how many times the file has been applied.
func (w *Watcher) Applied() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applied
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors emit several events per save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("threshold watcher error: %v", err)
		case <-fire:
			fire = nil
			if err := w.Apply(ctx); err != nil {
				log.Printf("threshold reload error: %v", err)
			}
		}
	}
}
