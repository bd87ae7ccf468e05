package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/vizzy/internal/app"
	"github.com/ayusman/vizzy/internal/config"
	"github.com/ayusman/vizzy/internal/server"
	"github.com/ayusman/vizzy/internal/store"
	"github.com/ayusman/vizzy/internal/tracking"
	"github.com/ayusman/vizzy/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	seed := flag.Bool("seed", false, "write the reference gestures to the gesture database and exit")
	flag.Parse()

	fmt.Println("Vizzy - Discrete Gesture Tracker")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	if *seed {
		if err := seedDatabase(cfg.DatabasePath); err != nil {
			log.Fatalf("Failed to seed gesture database: %v", err)
		}
		fmt.Printf("Seeded gesture database at %s\n", cfg.DatabasePath)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	if cfg.Replay.Path == "" {
		return errors.New("no tracking source configured: set replay.path or VIZZY_REPLAY")
	}
	src, err := tracking.OpenReplayFile(cfg.Replay.Path)
	if err != nil {
		return err
	}

	hub := server.NewHub()
	a, err := app.New(app.Config{
		Source:       src,
		DatabasePath: cfg.DatabasePath,
		Bodies:       cfg.Bodies,
		Sinks:        []app.Sink{hub},
	})
	if err != nil {
		return fmt.Errorf("failed to start gesture tracking: %w", err)
	}
	defer a.Close()

	webDir := findWebDir(cfg.DataDir())
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Hub:        hub,
		Controller: a,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := src.Run(ctx, cfg.Replay.Loop); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Replay stopped: %v", err)
		}
		log.Println("Replay finished")
	}()

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if cfg.Tray {
		t := tray.New(a.IsEnabled())
		t.OnToggle(a.SetEnabled)
		// Keep the menu in step with PUT /api/detection.
		a.RegisterEnabledCallback(t.SetEnabled)
		t.OnDisplay(func() {
			fmt.Printf("Gesture display at http://localhost%s/\n", cfg.Addr)
		})
		t.OnQuit(stop)
		a.RegisterGestureCallback(t.SetLastGesture)

		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedDatabase creates the gesture database if needed and adds the reference gestures.
func seedDatabase(path string) error {
	st, err := store.New(path)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Seed()
}

// findWebDir returns the directory holding the display page, or "" when
// none is installed. A web directory next to the working directory wins
// over the per-user one under the data directory.
func findWebDir(dataDir string) string {
	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join("..", "..", "web")}
	if dataDir != "" {
		candidates = append(candidates, filepath.Join(dataDir, "web"))
	}

	for _, dir := range candidates {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		// Serve from an absolute path so a later chdir has no effect.
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	return ""
}
