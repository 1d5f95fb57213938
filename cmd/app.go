package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlive/nextlive/internal/chat"
	"github.com/nextlive/nextlive/internal/config"
	"github.com/nextlive/nextlive/internal/events"
	"github.com/nextlive/nextlive/internal/gemini"
	"github.com/nextlive/nextlive/internal/log"
	"github.com/nextlive/nextlive/internal/project"
	"github.com/nextlive/nextlive/internal/security"
	"github.com/nextlive/nextlive/internal/session"
	"github.com/nextlive/nextlive/internal/tools"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg     *config.Config
	logger  log.Logger
	service *chat.Service
	store   *session.Store
	channel *events.Channel
}

// newApp wires the full application from configuration: model client,
// project tree, tool registry, conversation store and chat service.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	// Scan the source directory when it exists, the whole project
	// otherwise.
	scanRoot := filepath.Join(root, cfg.SourceDir)
	if info, err := os.Stat(scanRoot); err != nil || !info.IsDir() {
		scanRoot = root
	}

	client, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, Logger: logger})
	if err != nil {
		return nil, err
	}

	tree := project.New(scanRoot,
		project.WithSkipDirs(cfg.SkipDirs),
		project.WithExtensions(cfg.FileExtensions))
	paths, err := security.NewPath(scanRoot)
	if err != nil {
		return nil, err
	}

	fileTools, err := tools.NewFileTools(tree, paths, logger)
	if err != nil {
		return nil, err
	}
	cmdTools, err := tools.NewCommandTools(root, cfg.CommandTimeout, logger)
	if err != nil {
		return nil, err
	}
	imageGen := gemini.NewImageGenerator(client, cfg.ImageModel)
	imageTools, err := tools.NewImageTools(imageGen, filepath.Join(root, cfg.ImagesDir), logger)
	if err != nil {
		return nil, err
	}

	var execs []tools.Executor
	execs = append(execs, fileTools.Executors()...)
	execs = append(execs, imageTools.Executors()...)
	execs = append(execs, cmdTools.Executors()...)
	registry, err := tools.NewRegistry(logger, execs...)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(filepath.Join(root, cfg.ChatsDir), logger)
	if err != nil {
		return nil, err
	}

	channel := events.NewChannel(256)

	service, err := chat.NewService(chat.Config{
		Client:        client,
		Registry:      registry,
		Store:         store,
		Project:       tree,
		Images:        imageGen,
		Emitter:       channel,
		Logger:        logger,
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		MaxIterations: cfg.MaxIterations,
		Limiter:       rate.NewLimiter(rate.Every(time.Second), 2),
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		service: service,
		store:   store,
		channel: channel,
	}, nil
}

// newStore wires only the conversation store, for commands that manage
// saved chats without a model client. A missing API key is tolerated
// here since no model call is involved.
func newStore() (*session.Store, error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	return session.NewStore(filepath.Join(root, cfg.ChatsDir), log.NewNop())
}
