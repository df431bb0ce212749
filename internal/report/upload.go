package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/storage"
)

// Publish uploads written report files under runID/<file name> and returns
// their URLs keyed like the files.
func Publish(ctx context.Context, store storage.ObjectStorage, runID string, files []WrittenFile) (map[string]string, error) {
	urls := make(map[string]string, len(files))
	for _, f := range files {
		fh, err := os.Open(f.Path)
		if err != nil {
			return urls, fmt.Errorf("failed to open report file: %w", err)
		}
		info, err := fh.Stat()
		if err != nil {
			fh.Close()
			return urls, fmt.Errorf("failed to stat report file: %w", err)
		}

		key := runID + "/" + filepath.Base(f.Path)
		err = store.Upload(ctx, key, fh, info.Size(), "application/json")
		fh.Close()
		if err != nil {
			return urls, err
		}
		urls[f.Key] = store.GetURL(key)
		logger.With(logger.Fields{"key": key}).Debug(ctx, "Report file uploaded")
	}
	return urls, nil
}
