package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/ppiankov/apispectre/internal/models"
)

// DefaultSkipDirs are directory names never descended into during a walk
var DefaultSkipDirs = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	".next",
	"vendor",
	"__pycache__",
}

// DefaultMaxReadBytes caps how much of a single file is read from disk
const DefaultMaxReadBytes int64 = 10 * 1024 * 1024

// Config holds configuration for the collector
type Config struct {
	MaxConcurrency int
	Timeout        time.Duration
	MaxReadBytes   int64
	SkipDirs       []string // nil = DefaultSkipDirs
	Logger         hclog.Logger
}

// Collector reads source files from disk into intake entries
type Collector struct {
	config   Config
	skipDirs map[string]bool
	log      hclog.Logger
}

// New creates a new collector with the given configuration
func New(config Config) *Collector {
	// Set defaults
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.MaxReadBytes <= 0 {
		config.MaxReadBytes = DefaultMaxReadBytes
	}
	if config.SkipDirs == nil {
		config.SkipDirs = DefaultSkipDirs
	}

	log := config.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	skip := make(map[string]bool, len(config.SkipDirs))
	for _, d := range config.SkipDirs {
		skip[d] = true
	}

	return &Collector{
		config:   config,
		skipDirs: skip,
		log:      log.Named("collector"),
	}
}

// CollectFromDirectory reads every supported source file under dir.
// Entry paths are relative to dir and slash-separated.
func (c *Collector) CollectFromDirectory(dir string) ([]models.FileEntry, error) {
	return c.CollectFromPaths([]string{dir})
}

// CollectFromPaths reads the given files and walks the given directories.
func (c *Collector) CollectFromPaths(paths []string) ([]models.FileEntry, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths provided")
	}

	var targets []fileTarget
	for _, p := range paths {
		found, err := c.findSourceFiles(p)
		if err != nil {
			return nil, fmt.Errorf("failed to find source files: %w", err)
		}
		targets = append(targets, found...)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no supported source files found in: %v", paths)
	}

	c.log.Debug("found source files", "count", len(targets))

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	return c.collectFiles(ctx, targets)
}

// fileTarget is a file on disk and the path it is reported under
type fileTarget struct {
	disk string
	rel  string
}

// findSourceFiles walks root for files with a supported extension
func (c *Collector) findSourceFiles(root string) ([]fileTarget, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if DetectLanguage(root) == models.LanguageNone {
			return nil, nil
		}
		return []fileTarget{{disk: root, rel: filepath.ToSlash(root)}}, nil
	}

	var targets []fileTarget
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p != root && c.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || DetectLanguage(p) == models.LanguageNone {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		targets = append(targets, fileTarget{disk: p, rel: filepath.ToSlash(rel)})
		return nil
	})

	return targets, err
}

// collectResult holds the result of reading a single file
type collectResult struct {
	index int
	entry *models.FileEntry
	err   error
}

// collectFiles reads files concurrently using a worker pool.
// Output order matches the order of targets.
func (c *Collector) collectFiles(ctx context.Context, targets []fileTarget) ([]models.FileEntry, error) {
	// Channels for work distribution and results
	workCh := make(chan int, len(targets))
	resultCh := make(chan collectResult, len(targets))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < c.config.MaxConcurrency; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, targets, workCh, resultCh)
	}

	// Send work to workers
	go func() {
		defer close(workCh)
		for i := range targets {
			select {
			case workCh <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for workers to finish
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	slots := make([]*models.FileEntry, len(targets))
	var failed int

	for result := range resultCh {
		if result.err != nil {
			failed++
			c.log.Warn("skipping file", "path", targets[result.index].rel, "error", result.err)
			continue
		}
		slots[result.index] = result.entry
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collection aborted: %w", err)
	}

	entries := make([]models.FileEntry, 0, len(targets))
	for _, e := range slots {
		if e != nil {
			entries = append(entries, *e)
		}
	}

	// Return partial results even if some files failed
	if len(entries) == 0 && failed > 0 {
		return nil, fmt.Errorf("all files failed to read (%d errors)", failed)
	}

	if failed > 0 {
		c.log.Info("some files were skipped", "skipped", failed)
	}

	return entries, nil
}

// worker reads files from the work channel
func (c *Collector) worker(ctx context.Context, wg *sync.WaitGroup, targets []fileTarget, workCh <-chan int, resultCh chan<- collectResult) {
	defer wg.Done()

	for {
		select {
		case i, ok := <-workCh:
			if !ok {
				return
			}

			entry, err := c.readFile(targets[i])
			resultCh <- collectResult{index: i, entry: entry, err: err}

		case <-ctx.Done():
			return
		}
	}
}

// errBinary marks files whose content is not text
var errBinary = errors.New("binary content")

// readFile reads a single source file into an entry
func (c *Collector) readFile(t fileTarget) (*models.FileEntry, error) {
	info, err := os.Stat(t.disk)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > c.config.MaxReadBytes {
		return nil, fmt.Errorf("file is %d bytes, read limit is %d", info.Size(), c.config.MaxReadBytes)
	}

	data, err := os.ReadFile(t.disk)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if isBinary(data) {
		return nil, errBinary
	}

	return &models.FileEntry{Path: t.rel, Content: string(data)}, nil
}

// isBinary reports a NUL byte within the first 512 bytes
func isBinary(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.IndexByte(head, 0) >= 0
}
