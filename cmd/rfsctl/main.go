// Command rfsctl is a command-line front end over the virtual filesystem
// service, exercising the same registry/provider stack a higher-level
// consumer (an editor, an extension host) would drive programmatically.
// Its command tree follows the teacher's cmd/vmapfs in spirit — one
// binary, one job per invocation — but via cobra/viper instead of the
// teacher's flag-based single command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rfs"
	"rfs/internal/config"
	"rfs/internal/localprovider"
	"rfs/internal/logging"
	"rfs/internal/memprovider"
	"rfs/internal/snapshot"
)

var (
	cfgFile    string
	rootDir    string
	jsonErrors bool

	logger *logging.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "rfsctl",
		Short: "Drive the rfs virtual filesystem service from the command line",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "local provider root directory")
	root.PersistentFlags().BoolVar(&jsonErrors, "json", false, "print errors as JSON")

	root.AddCommand(
		resolveCmd(),
		catCmd(),
		cpCmd(),
		mvCmd(),
		rmCmd(),
		mkdirCmd(),
		watchCmd(),
		snapshotCmd(),
	)

	if err := root.Execute(); err != nil {
		reportErr(err)
		os.Exit(1)
	}
}

func reportErr(err error) {
	if jsonErrors {
		if b, merr := json.Marshal(err); merr == nil {
			fmt.Fprintln(os.Stderr, string(b))
			return
		}
	}
	fmt.Fprintln(os.Stderr, "rfsctl:", err)
}

// newService wires the "file" and "mem" schemes, two of the providers this
// repository ships, into a fresh Service per invocation.
func newService() (*rfs.Service, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if rootDir != "." {
		cfg.LocalRoot = rootDir
	}
	logging.GetLogger().SetLevel(levelFromString(cfg.LogLevel))
	logger = logging.GetLogger().WithPrefix("rfsctl")

	svc := rfs.NewService()
	if _, err := svc.RegisterProvider("file", localprovider.New(cfg.LocalRoot)); err != nil {
		return nil, err
	}
	if _, err := svc.RegisterProvider("mem", memprovider.New(afero.NewMemMapFs())); err != nil {
		return nil, err
	}
	svc.OnError().Subscribe(func(ev rfs.ErrorEvent) {
		logger.Debug("%s %s: %v", ev.Op, ev.Resource, ev.Err)
	})
	return svc, nil
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

func mustParseResource(raw string) (rfs.Resource, error) {
	return rfs.ParseResource(raw)
}

func resolveCmd() *cobra.Command {
	var recursiveMeta bool
	cmd := &cobra.Command{
		Use:   "resolve <resource>",
		Short: "Print the stat tree rooted at a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			stat, err := svc.Resolve(context.Background(), target, rfs.ResolveOptions{ResolveMetadata: recursiveMeta})
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(stat, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&recursiveMeta, "metadata", false, "fetch full metadata for every descendant")
	return cmd
}

func catCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <resource>",
		Short: "Print a file's content to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			result, err := svc.ReadFile(context.Background(), target, rfs.ReadOptions{})
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(result.Value)
			return err
		},
	}
	return cmd
}

func withProgress(label string, fn func() error) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)
	done := make(chan error, 1)
	go func() { done <- fn() }()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			bar.Finish()
			return err
		case <-ticker.C:
			bar.Add(1)
		}
	}
}

func cpCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file or folder, across providers if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			src, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			dst, err := mustParseResource(args[1])
			if err != nil {
				return err
			}
			return withProgress("copying", func() error {
				_, err := svc.Copy(context.Background(), src, dst, overwrite)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing target")
	return cmd
}

func mvCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move a file or folder, across providers if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			src, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			dst, err := mustParseResource(args[1])
			if err != nil {
				return err
			}
			return withProgress("moving", func() error {
				_, err := svc.Move(context.Background(), src, dst, overwrite)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing target")
	return cmd
}

func rmCmd() *cobra.Command {
	var recursive, trash bool
	cmd := &cobra.Command{
		Use:   "rm <resource>",
		Short: "Delete a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			return svc.Delete(context.Background(), target, rfs.DeleteOptions{Recursive: recursive, UseTrash: trash})
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", false, "delete a non-empty directory")
	cmd.Flags().BoolVar(&trash, "trash", false, "move to trash instead of erasing")
	return cmd
}

func mkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <resource>",
		Short: "Create a folder and any missing ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			_, err = svc.CreateFolder(context.Background(), target)
			return err
		},
	}
	return cmd
}

func watchCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "watch <resource>",
		Short: "Print file-change events under a resource until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}

			sub := svc.OnFileChanges().Subscribe(func(events []rfs.FileChangeEvent) {
				for _, ev := range events {
					fmt.Printf("%s %s\n", changeTypeString(ev.Type), ev.Resource)
				}
			})
			defer sub.Dispose()

			handle, err := svc.Watch(context.Background(), target, rfs.WatchOptions{Recursive: recursive})
			if err != nil {
				return err
			}
			defer handle.Dispose()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "watch the subtree, not just the resource itself")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var snapshotDir string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and compare named snapshots of a resource's stat tree",
	}
	cmd.PersistentFlags().StringVar(&snapshotDir, "dir", ".rfs-snapshots", "directory snapshots are stored under")

	save := &cobra.Command{
		Use:   "save <resource> <name>",
		Short: "Resolve a resource and save it as a named snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[0])
			if err != nil {
				return err
			}
			stat, err := svc.Resolve(context.Background(), target, rfs.ResolveOptions{ResolveMetadata: true})
			if err != nil {
				return err
			}
			mgr, err := snapshot.NewManager(snapshotDir)
			if err != nil {
				return err
			}
			return mgr.Save(args[1], stat)
		},
	}

	diff := &cobra.Command{
		Use:   "diff <name> <resource>",
		Short: "Compare a saved snapshot against a resource's current stat tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			mgr, err := snapshot.NewManager(snapshotDir)
			if err != nil {
				return err
			}
			before, err := mgr.Load(args[0])
			if err != nil {
				return err
			}
			target, err := mustParseResource(args[1])
			if err != nil {
				return err
			}
			after, err := svc.Resolve(context.Background(), target, rfs.ResolveOptions{ResolveMetadata: true})
			if err != nil {
				return err
			}
			printStatDiff("", before, after)
			return nil
		},
	}

	cmd.AddCommand(save, diff)
	return cmd
}

// printStatDiff walks two stat trees in lockstep by child name, printing
// one line per resource whose size, mtime, or presence changed.
func printStatDiff(path string, before, after rfs.FileStat) {
	if before.ETag != after.ETag {
		fmt.Printf("~ %s (size %d->%d, mtime %d->%d)\n", path, before.Size, after.Size, before.MTime, after.MTime)
	}
	byName := make(map[string]rfs.FileStat, len(before.Children))
	for _, c := range before.Children {
		byName[c.Name] = c
	}
	seen := make(map[string]bool, len(after.Children))
	for _, c := range after.Children {
		seen[c.Name] = true
		childPath := path + "/" + c.Name
		if prior, ok := byName[c.Name]; ok {
			printStatDiff(childPath, prior, c)
		} else {
			fmt.Printf("+ %s\n", childPath)
		}
	}
	for _, c := range before.Children {
		if !seen[c.Name] {
			fmt.Printf("- %s/%s\n", path, c.Name)
		}
	}
}

func changeTypeString(t rfs.FileChangeType) string {
	switch t {
	case rfs.FileChangeAdded:
		return "+"
	case rfs.FileChangeDeleted:
		return "-"
	default:
		return "~"
	}
}
