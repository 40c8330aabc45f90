package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/cartrace/engine/internal/asset"
	"github.com/cartrace/engine/internal/config"
	"github.com/cartrace/engine/internal/engine"
	"github.com/cartrace/engine/internal/render"
	"github.com/cartrace/engine/internal/render/wsview"
	"github.com/cartrace/engine/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             cartrace  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main engine logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("CARTRACE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log = log.With(zap.String("run_id", uuid.NewString()))
	defer log.Sync()

	switch os.Getenv("CARTRACE_PROFILE") {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	printBanner()

	// 3. Load assets. Any failure here is fatal and names the asset.
	printSection("Assets")
	manifest, err := asset.LoadManifest(cfg.Assets.Manifest)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	lib := asset.NewLibrary(asset.FileLoader{
		MeshDir:    cfg.Assets.MeshDir,
		TextureDir: cfg.Assets.TextureDir,
	}, log.Named("asset"))
	if err := lib.LoadManifest(manifest); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	printStat("Meshes", len(lib.MeshIDs()))
	printStat("Materials", len(lib.MaterialIDs()))
	if lib.Skybox() != nil {
		printOK("Skybox " + filepath.Base(manifest.Skybox))
	}
	fmt.Println()

	// 4. Engine and scene scripts
	printSection("Scene")
	eng, err := engine.New(cfg, lib, log.Named("engine"))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	lua := scripting.NewEngine(log.Named("lua"))
	defer lua.Close()
	eng.AttachScripts(lua)
	n, err := eng.RunScripts(lua, cfg.Scripting.Dir)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	printStat("Scripts", n)
	printStat("Instances", eng.DrawCalls().Instances())
	printOK("Handoff " + eng.Mode().String())
	fmt.Println()

	// 5. Renderer and GPU preload
	printSection("Render")
	var (
		renderer render.Renderer
		uploader render.Uploader
		viewer   *wsview.Server
	)
	switch cfg.Render.Mode {
	case "websocket":
		viewer = wsview.New(eng, 8, log.Named("wsview"))
		renderer, uploader = viewer, viewer
	default:
		headless := render.NewHeadless(cfg.Render.StatsEvery, log.Named("render"))
		renderer, uploader = headless, headless
	}
	handles, err := render.Preload(lib, uploader)
	if err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	printStat("Uploaded meshes", len(handles.Meshes))
	printStat("Uploaded materials", len(handles.Materials))
	printOK("Renderer " + cfg.Render.Mode)
	fmt.Println()

	// 6. Run simulation and render loops until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Simulate(ctx) })
	g.Go(func() error {
		return render.NewLoop(eng, renderer, handles, cfg.Render.FrameRate, log.Named("render")).Run(ctx)
	})
	if viewer != nil {
		g.Go(func() error { return viewer.Serve(ctx, cfg.Render.BindAddress) })
		printReady(fmt.Sprintf("Viewer at ws://%s/ws", cfg.Render.BindAddress))
	}
	printReady(fmt.Sprintf("Simulation running (tick: %s)", cfg.Engine.TickRate))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete", zap.Uint64("ticks", eng.Ticks()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
