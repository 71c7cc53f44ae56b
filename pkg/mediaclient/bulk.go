package mediaclient

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// BulkOptions configures UploadDir.
type BulkOptions struct {
	MediaType string
	Workers   int  // concurrent uploads, default 4
	KeepNames bool // use each file's base name as customFilename
}

// BulkResult reports the outcome of one file.
type BulkResult struct {
	Path string
	Key  string
	Err  error
}

// BulkStats summarizes an UploadDir run.
type BulkStats struct {
	TotalFiles    int64
	UploadedFiles int64
	SkippedFiles  int64
	FailedFiles   int64
	StartTime     time.Time
	EndTime       time.Time
	Results       []BulkResult // sorted by Path
}

// UploadDir uploads every regular file under dir with a pool of workers.
// Files without an extension are skipped. A failed file does not stop the run.
func (c *Client) UploadDir(ctx context.Context, dir string, opts BulkOptions) (*BulkStats, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	paths, skipped, err := collectFiles(dir)
	if err != nil {
		return nil, err
	}

	stats := &BulkStats{
		TotalFiles:   int64(len(paths)) + skipped,
		SkippedFiles: skipped,
		StartTime:    time.Now(),
	}

	pathsChan := make(chan string, workers*2)
	resultsChan := make(chan BulkResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathsChan {
				resultsChan <- c.uploadOne(ctx, path, opts)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			if result.Err != nil {
				atomic.AddInt64(&stats.FailedFiles, 1)
			} else {
				atomic.AddInt64(&stats.UploadedFiles, 1)
			}
			stats.Results = append(stats.Results, result)
		}
		close(done)
	}()

feed:
	for _, path := range paths {
		select {
		case pathsChan <- path:
		case <-ctx.Done():
			break feed
		}
	}

	close(pathsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()
	sort.Slice(stats.Results, func(i, j int) bool {
		return stats.Results[i].Path < stats.Results[j].Path
	})

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (c *Client) uploadOne(ctx context.Context, path string, opts BulkOptions) BulkResult {
	result := BulkResult{Path: path}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	f, err := os.Open(path)
	if err != nil {
		result.Err = err
		return result
	}
	defer f.Close()

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := ""
	if opts.KeepNames {
		name = strings.TrimSuffix(base, ext)
	}

	grant, err := c.UploadFile(ctx, strings.TrimPrefix(ext, "."), opts.MediaType, name, f, mime.TypeByExtension(ext))
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", path, err)
		return result
	}
	result.Key = grant.Key
	return result
}

// collectFiles returns the uploadable files under dir in lexical order and how many were skipped.
func collectFiles(dir string) ([]string, int64, error) {
	var paths []string
	var skipped int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if filepath.Ext(d.Name()) == "" || filepath.Ext(d.Name()) == "." {
			skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return paths, skipped, nil
}
