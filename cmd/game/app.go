package main

import (
	"context"
	"fmt"
	"os"

	"storyloop/internal/config"
	"storyloop/internal/debug"
	"storyloop/internal/engine"
	"storyloop/internal/escalation"
	"storyloop/internal/game"
	"storyloop/internal/game/narration"
	"storyloop/internal/llm"
	"storyloop/internal/logging"
	"storyloop/internal/lore"
	"storyloop/internal/observability"
	"storyloop/internal/risk"
)

// app holds everything a subcommand needs and how to tear it down.
type app struct {
	cfg    config.Config
	debug  *debug.Logger
	tracer *observability.TracerProvider
	store  *logging.Store
	engine *engine.Engine
}

func createApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	debugLogger, err := debug.NewLogger(cfg.Debug, cfg.DebugLog)
	if err != nil {
		return nil, err
	}

	tracerProvider, err := observability.InitTracing(ctx, cfg.ObservabilityConfig(version))
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	a := &app{cfg: cfg, debug: debugLogger, tracer: tracerProvider}
	if a.store, err = logging.Open(cfg.CompletionDB); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize completion log: %w", err)
	}
	if a.engine, err = buildEngine(cfg, debugLogger, a.store); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func buildEngine(cfg config.Config, debugLogger *debug.Logger, store *logging.Store) (*engine.Engine, error) {
	world := game.NewDefaultWorld()
	if cfg.WorldFile != "" {
		loaded, err := game.LoadWorldFile(cfg.WorldFile)
		if err != nil {
			return nil, err
		}
		world = loaded
		debugLogger.Printf("Loaded world from %s", cfg.WorldFile)
	}

	composerOpts := []narration.ComposerOption{
		narration.WithTimeout(cfg.GenerationTimeout),
		narration.WithMaxTokens(cfg.GenerationMaxTokens),
		narration.WithRecorder(store),
	}
	if cfg.OpenAIKey != "" {
		composerOpts = append(composerOpts, narration.WithGenerator(llm.NewService(cfg.OpenAIKey, cfg.OpenAIModel, debugLogger)))
		debugLogger.Printf("Text generation enabled with %s", cfg.OpenAIModel)
	} else {
		debugLogger.Println("OPENAI_API_KEY not set, narration uses templates only")
	}
	composer := narration.NewComposer(debugLogger, composerOpts...)

	assessor, err := risk.NewAssessor(cfg.BaseRisk, nil)
	if err != nil {
		return nil, err
	}
	controller, err := escalation.NewController(cfg.EscalationThreshold, store, debugLogger)
	if err != nil {
		return nil, err
	}
	triggers, err := narration.DefaultTriggers(narration.EffectPolicy(cfg.TriggerPolicy), debugLogger)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		World:      world,
		Assessor:   assessor,
		Controller: controller,
		Triggers:   triggers,
		Composer:   composer,
		Dialogue:   narration.NewDialogueManager(narration.NewPromptManager(), composer),
		Audit:      store,
		Logger:     debugLogger,
	}
	if cfg.LoreFile != "" {
		facts, err := lore.LoadFile(cfg.LoreFile)
		if err != nil {
			return nil, err
		}
		opts.Lore = facts
		debugLogger.Printf("Loaded lore from %s", cfg.LoreFile)
	}
	return engine.New(opts)
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.debug.Printf("Failed to close completion log: %v", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.debug.Printf("Failed to shut down tracing: %v", err)
		}
	}
	if err := a.debug.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close debug log: %v\n", err)
	}
}
