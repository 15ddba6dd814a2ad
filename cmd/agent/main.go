package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reelcut/reelcut-agent/internal/api"
	"github.com/reelcut/reelcut-agent/internal/config"
	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/logging"
	"github.com/reelcut/reelcut-agent/internal/media"
	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/render"
)

var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reelcut-agent",
		Short:        "Local video edit engine and render service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API and render worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.RendersDir(), 0755); err != nil {
		return fmt.Errorf("failed to create renders dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelcut agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Printf("  reelcut agent v%s\n", Version)
	fmt.Printf("  API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	svc := project.NewService(repo, logger)

	tools, err := media.NewTools(media.Config{
		FFmpegPath:  cfg.FFmpegPath(),
		FFprobePath: cfg.FFprobePath(),
		Logger:      logging.WithComponent(logger, "media"),
	})
	if err != nil {
		return fmt.Errorf("failed to locate media tools: %w", err)
	}
	doctor := media.NewDoctor(tools)

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.TimeoutProbe())
	caps := doctor.Get(initCtx)
	initCancel()
	logger.Info("media capabilities detected",
		"ffmpeg", caps.FFmpegAvailable,
		"ffprobe", caps.FFprobeAvailable,
		"drawtext", caps.DrawtextSupported,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := project.NewRunner(svc, repo, tools,
		render.DefaultStrategy(cfg.PrimaryEncoder(), cfg.FallbackEncoder()),
		stageTimeouts(cfg), cfg.RenderWorkers(), cfg.RendersDir(),
		logging.WithComponent(logger, "runner"))
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Service:    svc,
		Repository: repo,
		Runner:     runner,
		Doctor:     doctor,
		Streamer:   playback.NewStreamer(logging.WithComponent(logger, "playback")),
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
		Version:    Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func newRenderCmd() *cobra.Command {
	var (
		output       string
		burnCaptions bool
		captionStyle string
		width        int
		height       int
	)

	cmd := &cobra.Command{
		Use:   "render <project-id>",
		Short: "Render a stored project to a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], output, burnCaptions, captionStyle, width, height)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default <renders-dir>/<project-id>.mp4)")
	cmd.Flags().BoolVar(&burnCaptions, "captions", false, "burn word-highlight captions into the output")
	cmd.Flags().StringVar(&captionStyle, "caption-style", "default", "caption style preset")
	cmd.Flags().IntVar(&width, "width", 0, "output width (default project frame)")
	cmd.Flags().IntVar(&height, "height", 0, "output height (default project frame)")
	return cmd
}

func runRender(projectID, output string, burnCaptions bool, captionStyle string, width, height int) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger("warn")

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if p == nil {
		return fmt.Errorf("project %s not found", projectID)
	}

	plan, err := render.Compile(p, render.Options{
		Width:        width,
		Height:       height,
		BurnCaptions: burnCaptions,
		CaptionStyle: captionStyle,
	})
	if err != nil {
		return err
	}

	if output == "" {
		if err := os.MkdirAll(cfg.RendersDir(), 0755); err != nil {
			return fmt.Errorf("failed to create renders dir: %w", err)
		}
		output = fmt.Sprintf("%s/%s.mp4", cfg.RendersDir(), p.ID)
	}

	tools, err := media.NewTools(media.Config{
		FFmpegPath:  cfg.FFmpegPath(),
		FFprobePath: cfg.FFprobePath(),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to locate media tools: %w", err)
	}

	exec := render.NewExecutor(tools,
		render.DefaultStrategy(cfg.PrimaryEncoder(), cfg.FallbackEncoder()),
		cfg.RenderWorkers(), stageTimeouts(cfg), logger)

	bar := progressbar.NewOptions(render.StepCount(plan),
		progressbar.OptionSetDescription("Rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
	)
	exec.OnStage = func(stage string) {
		bar.Describe("Rendering: " + stage)
		bar.Add(1)
	}

	if err := exec.Execute(ctx, plan, output); err != nil {
		fmt.Println()
		return err
	}
	bar.Finish()
	fmt.Println()
	fmt.Println("wrote", output)
	return nil
}

func stageTimeouts(cfg config.Config) render.StageTimeouts {
	return render.StageTimeouts{
		Probe:   cfg.TimeoutProbe(),
		Segment: cfg.TimeoutSegment(),
		Concat:  cfg.TimeoutConcat(),
		Compose: cfg.TimeoutCompose(),
		Mix:     cfg.TimeoutMix(),
	}
}

func ensureAuthToken(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
