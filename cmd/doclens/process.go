package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"doclens/internal/model"
	"doclens/internal/processor"
)

// runProcess processes the named files and directories and writes the
// resulting ProcessedDocument array to out.
func runProcess(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("process", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	pretty := flags.Bool("pretty", false, "indent the JSON output")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("no input files; usage: doclens process [-config file] [-pretty] <file|dir>...")
	}

	paths, err := collectFiles(flags.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no supported files found")
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()

	files, err := readUploads(paths, int64(rt.cfg.Processing.MaxFileSizeMB)<<20)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs := rt.newProcessor(nil).ProcessFiles(ctx, files)
	failed := 0
	for _, d := range docs {
		if model.Outcome(d.Data) == "error" {
			failed++
		}
	}
	rt.log.Info("[Batch] done", zap.Int("files", len(docs)), zap.Int("failed", failed))

	enc := json.NewEncoder(out)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(docs)
}

// collectFiles expands args into file paths. Directories are walked
// recursively and only files with a routable extension are kept; explicit
// file arguments are always kept so unsupported ones still get a result.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if processor.Classify("", d.Name()) != processor.KindUnknown {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// readUploads loads each path as an UploadedFile with an extension-derived
// MIME type. Files over maxSize are passed with their size only, which the
// pipeline reports as too large.
func readUploads(paths []string, maxSize int64) ([]model.UploadedFile, error) {
	files := make([]model.UploadedFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		f := model.UploadedFile{
			Name:     filepath.Base(p),
			MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p))),
			Size:     info.Size(),
		}
		if maxSize <= 0 || info.Size() <= maxSize {
			f.Data, err = os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p, err)
			}
		}
		files = append(files, f)
	}
	return files, nil
}
