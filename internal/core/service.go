package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modrand/internal/background"
	"modrand/internal/domain"
	"modrand/internal/source"
	"modrand/internal/source/browser"
	"modrand/internal/source/static"
	"modrand/internal/storage/config"
	"modrand/internal/storage/db"
	"modrand/internal/storage/kv"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir  string // Directory for configuration files
	ConfigFile string // Explicit config file, overrides ConfigDir/config.yaml
	DataDir    string // Directory for the database

	Logger *slog.Logger

	// Sources replaces the inventory sources derived from the config.
	Sources []source.InventorySource
}

// Service is the main orchestrator: it wires config, store, inventory,
// the background collaborator and one UI session.
type Service struct {
	config   *config.Config
	db       *db.DB
	registry *source.Registry
	agent    *background.Agent
	metrics  *Metrics
	log      *slog.Logger

	session  *Session
	saver    *SaveCoordinator
	profiles *ProfileManager
	merge    *MergeEngine
	gc       *GarbageCollector
	settings *Settings
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load configuration
	var appConfig *config.Config
	var err error
	if cfg.ConfigFile != "" {
		path, perr := config.ParseConfigPath(cfg.ConfigFile)
		if perr != nil {
			return nil, fmt.Errorf("config file: %w", perr)
		}
		appConfig, err = config.LoadFile(path)
	} else {
		appConfig, err = config.Load(cfg.ConfigDir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Open database
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.New(filepath.Join(cfg.DataDir, "modrand.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	registry := source.NewRegistry()
	if cfg.Sources != nil {
		for _, src := range cfg.Sources {
			registry.Register(src)
		}
	} else {
		registerConfiguredSources(registry, appConfig, logger)
	}

	s := &Service{
		config:   appConfig,
		db:       database,
		registry: registry,
		metrics:  NewMetrics(),
		log:      logger,
	}
	s.wire(database)
	return s, nil
}

func registerConfiguredSources(registry *source.Registry, cfg *config.Config, logger *slog.Logger) {
	dir := cfg.ExtensionsDir
	if dir == "" {
		if found := browser.FindExtensionDirs(); len(found) > 0 {
			dir = found[0]
		}
	}
	if dir != "" {
		logger.Debug("scanning extensions", "dir", dir)
		registry.Register(browser.New(dir, cfg.UpdateURL))
	}
	if cfg.InventoryFile != "" {
		registry.Register(static.New(cfg.InventoryFile))
	}
}

func (s *Service) wire(store kv.Store) {
	s.agent = background.New(store, s.registry, s.log)
	s.saver = NewSaveCoordinator(SaveCoordinatorOpts{
		Store:    store,
		Members:  s.agent,
		Debounce: s.config.Debounce,
		Release:  s.config.LockRelease,
		Logger:   s.log,
		Metrics:  s.metrics,
	})
	s.gc = NewGarbageCollector(store, s.log, s.metrics)
	s.session = NewSession(SessionOpts{
		Store:      store,
		Members:    s.agent,
		Reconciler: NewReconciler(store, NewCollator(s.config.Locale)),
		Collector:  s.gc,
		Saver:      s.saver,
		Logger:     s.log,
		Metrics:    s.metrics,
	})
	s.profiles = NewProfileManager(store, s.agent, s.session)
	s.merge = NewMergeEngine(store, s.log, s.metrics)
	s.settings = NewSettings(store)
}

// Close flushes pending edits and releases resources held by the service
func (s *Service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.session.Close(ctx); err != nil {
		s.log.Warn("flushing pending edits", "error", err)
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Session returns the UI session
func (s *Service) Session() *Session { return s.session }

// Profiles returns the profile manager
func (s *Service) Profiles() *ProfileManager { return s.profiles }

// Settings returns the settings accessor
func (s *Service) Settings() *Settings { return s.settings }

// Metrics returns the service metrics
func (s *Service) Metrics() *Metrics { return s.metrics }

// Config returns the loaded configuration
func (s *Service) Config() *config.Config { return s.config }

// Store returns the key/value store
func (s *Service) Store() kv.Store { return s.db }

// Registry returns the inventory source registry
func (s *Service) Registry() *source.Registry { return s.registry }

// CollectGarbage refreshes the inventory and prunes ids it no longer reports.
func (s *Service) CollectGarbage(ctx context.Context) (GCResult, error) {
	ext, err := s.agent.GetExtensions(ctx)
	if err != nil {
		return GCResult{}, fmt.Errorf("getting extensions: %w", err)
	}
	return s.gc.Collect(ctx, domain.ModIDs(ext.DetectedModList))
}

// ImportFile imports a profile document after refreshing the inventory snapshot.
func (s *Service) ImportFile(ctx context.Context, path string) (domain.ImportResult, error) {
	path, err := config.ParseFilePath(path, ".json")
	if err != nil {
		return domain.ImportResult{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("reading import file: %w", err)
	}
	if _, err := s.agent.GetExtensions(ctx); err != nil {
		return domain.ImportResult{}, fmt.Errorf("getting extensions: %w", err)
	}
	return s.merge.Import(ctx, data)
}

// ExportFile writes every profile to path. When path is a directory the
// file gets the dated default name. It returns the written path.
func (s *Service) ExportFile(ctx context.Context, path string, now time.Time) (string, error) {
	if _, err := s.agent.GetExtensions(ctx); err != nil {
		return "", fmt.Errorf("getting extensions: %w", err)
	}
	doc, err := s.merge.Export(ctx, now)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "."
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ExportFileName(now))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// Watch feeds store changes to the session and reports each resulting
// render to fn. Changes arriving while fn or a render runs are batched.
func (s *Service) Watch(ctx context.Context, fn func(View, bool, error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	var queued []kv.Change
	signal := make(chan struct{}, 1)

	unsubscribe := s.db.Subscribe(func(changes []kv.Change) {
		mu.Lock()
		queued = append(queued, changes...)
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
			}
			mu.Lock()
			batch := queued
			queued = nil
			mu.Unlock()

			view, rendered, err := s.session.HandleChanges(ctx, batch)
			fn(view, rendered, err)
		}
	}()

	return func() {
		unsubscribe()
		cancel()
	}
}
