package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

type FileProof struct {
	Witness hexutil.Bytes `json:"witness"`
}

// DiskRepository caches witnesses on disk and deletes them once they are older than ttl.
type DiskRepository struct {
	baseDir      string
	deleteBefore time.Duration
	logger       *zap.Logger
	closeContext context.Context
	Close        context.CancelFunc
}

func NewDiskRepository(baseDir string, ttl time.Duration, logger *zap.Logger) (*DiskRepository, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll failed: %w", err)
	}
	ctx, cancelFunc := context.WithCancel(context.Background())
	disk := &DiskRepository{
		baseDir:      baseDir,
		deleteBefore: ttl,
		logger:       logger,
		closeContext: ctx,
		Close:        cancelFunc,
	}
	go disk.scheduleDeleteOldProof(min(ttl, 10*time.Minute))
	return disk, nil
}

// Find returns the cached proof for id, or nil when absent, expired or unreadable.
func (r *DiskRepository) Find(id string) *FileProof {
	path := r.path(id)
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Before(time.Now().Add(-r.deleteBefore)) {
		return nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var proof FileProof
	if err := json.Unmarshal(file, &proof); err != nil {
		r.logger.Warn("json.Unmarshal failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	return &proof
}

func (r *DiskRepository) Save(id string, proof *FileProof) {
	jsonResult, err := json.Marshal(proof)
	if err != nil {
		r.logger.Warn("json.Marshal failed", zap.String("id", id), zap.Error(err))
		return
	}
	// write then rename so concurrent readers never see a partial file.
	tmp := r.path(id) + ".tmp"
	if err := os.WriteFile(tmp, jsonResult, 0o644); err != nil {
		r.logger.Warn("os.WriteFile failed", zap.String("id", id), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, r.path(id)); err != nil {
		r.logger.Warn("os.Rename failed", zap.String("id", id), zap.Error(err))
	}
}

func (r *DiskRepository) path(id string) string { return filepath.Join(r.baseDir, id) }

func (r *DiskRepository) scheduleDeleteOldProof(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deletedCount := r.deleteOldProof(time.Now().Add(-r.deleteBefore))
			r.logger.Debug("deleted old proofs", zap.Int("count", deletedCount))
		case <-r.closeContext.Done():
			return
		}
	}
}

// deleteOldProof deletes proofs stored before t and files that no longer parse.
func (r *DiskRepository) deleteOldProof(t time.Time) (deletedCount int) {
	files, _ := os.ReadDir(r.baseDir)
	for _, file := range files {
		info, err := file.Info()
		if err != nil {
			continue
		}
		corrupted := func() bool {
			content, err := os.ReadFile(r.path(file.Name()))
			return err == nil && !json.Valid(content)
		}
		if info.ModTime().Before(t) || corrupted() {
			if err := os.Remove(r.path(file.Name())); err != nil {
				r.logger.Warn("failed to delete old proof", zap.String("file", file.Name()), zap.Error(err))
			} else {
				deletedCount++
			}
		}
	}
	return
}
