package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sources is what the watcher polls and notifies.
type Sources interface {
	Sources() []string
	Invalidate(path string) bool
}

// Store persists the last seen fingerprint per path, so a change made while
// the process was down is still noticed on startup.
type Store interface {
	GetMetadata(key string) (*string, error)
	SetMetadata(key, value string) error
}

const missing = "missing"

type stamp struct {
	size    int64
	modTime time.Time
}

// Service polls source files and invalidates cached data derived from any
// file whose content changed.
type Service struct {
	sources  Sources
	store    Store
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	stamps map[string]stamp
	prints map[string]string
}

func NewService(sources Sources, store Store, logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		sources:  sources,
		store:    store,
		logger:   logger,
		clock:    clock,
		interval: interval,
		stamps:   map[string]stamp{},
		prints:   map[string]string{},
	}
}

// Run checks once immediately, then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.cycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	changed, err := s.CheckOnce(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("watch cycle error", "error", err)
	}
	if len(changed) > 0 {
		s.logger.Info("watch cycle done", "changed", len(changed))
	}
}

// CheckOnce compares every source against its last fingerprint and returns
// the paths that changed. A path seen for the first time only records its
// fingerprint unless the store remembers a different one.
func (s *Service) CheckOnce(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := []string{}
	var errs []error
	for _, path := range s.sources.Sources() {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		ok, err := s.check(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			changed = append(changed, path)
		}
	}
	return changed, errors.Join(errs...)
}

func (s *Service) check(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		delete(s.stamps, path)
		return s.record(path, missing)
	case err != nil:
		return false, err
	}

	st := stamp{size: info.Size(), modTime: info.ModTime()}
	if prev, ok := s.stamps[path]; ok && prev == st {
		return false, nil
	}

	fp, err := fingerprint(path, st)
	if err != nil {
		return false, err
	}
	s.stamps[path] = st
	return s.record(path, fp)
}

func (s *Service) record(path, fp string) (bool, error) {
	prev, known := s.prints[path]
	if !known && s.store != nil {
		stored, err := s.store.GetMetadata(metadataKey(path))
		if err != nil {
			return false, err
		}
		if stored != nil {
			prev, known = *stored, true
		}
	}
	s.prints[path] = fp
	if known && prev == fp {
		return false, nil
	}

	if s.store != nil {
		if err := s.store.SetMetadata(metadataKey(path), fp); err != nil {
			return false, err
		}
	}
	if !known {
		return false, nil
	}

	dropped := s.sources.Invalidate(path)
	s.logger.Info("source changed", "path", path, "fingerprint", fp, "dropped", dropped)
	return true, nil
}

// fingerprint hashes the content; size and mtime only decide whether the hash
// needs recomputing.
func fingerprint(path string, st stamp) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return fmt.Sprintf("%d:%s", st.size, hex.EncodeToString(h.Sum(nil))), nil
}

func metadataKey(path string) string {
	return "source:" + path
}
