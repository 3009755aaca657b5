package stream

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/fluidsim/internal/config"
)

// Watch reloads the config file at path into the server each time it is
// written, until ctx is cancelled. Empty reads from a truncating writer are
// ignored. The parent directory is watched so that
// editors which replace the file are seen too. Files that fail to parse or
// validate are logged and skipped.
func (s *Server) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	s.logger.Info("watching config", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil || len(data) == 0 {
				continue
			}
			cfg, err := config.Parse(data)
			if err != nil {
				s.logger.Warn("config reload skipped", "err", err)
				continue
			}
			if err := s.Reload(ctx, cfg); err != nil {
				s.logger.Warn("config reload skipped", "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch", "err", err)
		}
	}
}

func sceneEqual(a, b config.Scene) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}
