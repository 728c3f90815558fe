package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/spf13/afero"

	"rfs"
	"rfs/internal/config"
	"rfs/internal/localprovider"
	"rfs/internal/logging"
	"rfs/internal/memprovider"
)

func main() {
	mountPoint := flag.String("mount", "", "Mount point for the virtual filesystem")
	sourcePath := flag.String("source", "", "Local directory backing the file:// scheme")
	configFile := flag.String("config", "", "Config file (optional)")
	authority := flag.String("authority", "local", "Authority segment of the mounted scheme, e.g. file://<authority>/")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	logger := logging.GetLogger()
	if *verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	if *mountPoint == "" || *sourcePath == "" {
		logger.Error("-mount and -source are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	if cfg.LogLevel != "" && !*verbose {
		logger.SetLevel(levelFromString(cfg.LogLevel))
	}

	cleanMount := filepath.Clean(*mountPoint)
	cleanSource := filepath.Clean(*sourcePath)

	logger.Info("Registering providers...")
	svc := rfs.NewService()
	if _, err := svc.RegisterProvider("file", localprovider.New(cleanSource)); err != nil {
		logger.Error("Failed to register local provider: %v", err)
		os.Exit(1)
	}
	if _, err := svc.RegisterProvider("mem", memprovider.New(afero.NewMemMapFs())); err != nil {
		logger.Error("Failed to register mem provider: %v", err)
		os.Exit(1)
	}
	defer svc.Dispose()

	vfs := NewFS(svc, "file", *authority)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Mounting at %s", cleanMount)
	c, err := fuse.Mount(cleanMount,
		fuse.FSName("rfs"),
		fuse.Subtype("rfs"),
		fuse.AllowOther(),
		fuse.DefaultPermissions(),
	)
	if err != nil {
		logger.Error("Mount failed: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Serving filesystem...")
		if err := fusefs.Serve(c, vfs); err != nil {
			logger.Error("FUSE server error: %v", err)
		}
	}()

	go func() {
		sig := <-sigChan
		logger.Info("Received signal %v", sig)
		if err := fuse.Unmount(cleanMount); err != nil {
			logger.Error("Unmount error: %v", err)
		}
	}()

	wg.Wait()
	logger.Info("Clean shutdown complete")
}

func levelFromString(s string) logging.LogLevel {
	switch s {
	case "ERROR":
		return logging.LevelError
	case "WARN":
		return logging.LevelWarn
	case "DEBUG":
		return logging.LevelDebug
	case "TRACE":
		return logging.LevelTrace
	default:
		return logging.LevelInfo
	}
}
