package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DivEden/DGB/internal/compress"
)

var (
	compressTargetKB    int64
	compressToleranceKB int64
	compressMode        string
	compressGroup       string
	compressOutputDir   string
	compressWorkers     int
	compressMaxItems    int
)

var compressCmd = &cobra.Command{
	Use:   "compress [flags] <folder>",
	Short: "Compress every image in a folder to the target file size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		if compressMode == "grouped" && compressGroup == "" {
			return fmt.Errorf("--group is required with --mode grouped")
		}
		if err := os.MkdirAll(compressOutputDir, 0o755); err != nil {
			return err
		}

		paths, err := imagePaths(root)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no images found in %s", root)
		}

		mode, err := compress.ParseNamingMode(compressMode)
		if err != nil {
			return err
		}
		var namer *compress.Namer
		switch mode {
		case compress.Grouped:
			namer = compress.GroupedNamer(compressGroup)
		case compress.Individual:
			return fmt.Errorf("individual naming is only available through the web upload")
		default:
			namer = compress.KeepOriginalNamer()
		}

		target := compress.Target{
			TargetBytes:    compressTargetKB * 1024,
			ToleranceBytes: compressToleranceKB * 1024,
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		in := make(chan compress.SourceImage)
		out, state, err := compress.Run(ctx, in, target, namer, compress.Options{
			Workers:  compressWorkers,
			MaxItems: compressMaxItems,
		})
		if err != nil {
			return err
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			defer close(in)
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					data = nil // surfaces as a per-item failure
				}
				select {
				case in <- compress.SourceImage{Name: filepath.Base(p), Data: data}:
				case <-done:
					return
				}
			}
		}()

		var outBytes int64
		for item := range out {
			if item.Err != nil {
				continue
			}
			res := item.Result
			outBytes += res.AchievedBytes
			dest := filepath.Join(compressOutputDir, res.Name)
			if err := os.WriteFile(dest, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}
			if !res.SatisfiedTarget {
				fmt.Fprintf(os.Stderr, "note: %s could not reach the target, best effort is %d bytes\n",
					res.Name, res.AchievedBytes)
			}
		}
		failures := state.Failures()
		fmt.Printf("Processed: %d\n", state.Processed())
		fmt.Printf("Failed:    %d\n", len(failures))
		for _, f := range failures {
			fmt.Printf("  #%d %s: %v\n", f.Index+1, f.Name, f.Reason)
		}
		if state.Truncated() {
			fmt.Printf("Stopped at the %d-item ceiling; remaining files were not processed.\n", compressMaxItems)
		}
		fmt.Printf("Input:     %d bytes\n", state.InputBytes())
		fmt.Printf("Output:    %d bytes\n", outBytes)
		fmt.Printf("Written to %s\n", compressOutputDir)
		return nil
	},
}

func imagePaths(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp":
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func init() {
	compressCmd.Flags().Int64Var(&compressTargetKB, "target-kb", 500, "target size per image in KB")
	compressCmd.Flags().Int64Var(&compressToleranceKB, "tolerance-kb", 0, "acceptable undershoot in KB (default 5% of target)")
	compressCmd.Flags().StringVar(&compressMode, "mode", "keep", "naming mode: keep or grouped")
	compressCmd.Flags().StringVar(&compressGroup, "group", "", "group label for grouped naming, e.g. Sag0017")
	compressCmd.Flags().StringVarP(&compressOutputDir, "out", "o", "komprimeret", "destination folder")
	compressCmd.Flags().IntVar(&compressWorkers, "workers", 0, "worker pool size (default: CPU count)")
	compressCmd.Flags().IntVar(&compressMaxItems, "max-items", 500, "batch ceiling")

	rootCmd.AddCommand(compressCmd)
}
