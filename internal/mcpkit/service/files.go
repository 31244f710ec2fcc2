package service

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/pkg/filemonitor"
	"github.com/sjzar/mcpkit/pkg/util"
)

// MaxFileSize is the largest file resources/read returns.
const MaxFileSize = 8 << 20

type fileEntry struct {
	Path     string
	Size     int64
	MimeType string
	Text     bool
}

// fileIndex lists the files below root and keeps the list current while
// started.
type fileIndex struct {
	root string

	mu     sync.RWMutex
	files  []fileEntry
	byPath map[string]int

	monitor *filemonitor.FileMonitor
}

func newFileIndex(root string) *fileIndex {
	return &fileIndex{root: root, byPath: make(map[string]int)}
}

func (x *fileIndex) Start() error {
	if err := x.rebuild(); err != nil {
		return err
	}

	blacklist := []string{string(filepath.Separator) + "."}
	monitor, err := filemonitor.New(x.root, "", blacklist, x.onChange)
	if err != nil {
		return errors.WatchFailed(x.root, err)
	}
	if err := monitor.Start(); err != nil {
		return errors.WatchFailed(x.root, err)
	}
	x.monitor = monitor
	return nil
}

func (x *fileIndex) Stop() error {
	if x.monitor == nil {
		return nil
	}
	err := x.monitor.Stop()
	x.monitor = nil
	return err
}

func (x *fileIndex) onChange(events []fsnotify.Event) {
	if err := x.rebuild(); err != nil {
		log.Error().Err(err).Str("root", x.root).Msg("rebuild resource index failed")
		return
	}
	log.Debug().Int("events", len(events)).Int("files", x.len()).Msg("resource index rebuilt")
}

func (x *fileIndex) rebuild() error {
	paths, err := util.FindFilesWithPatterns(x.root, ".*", true)
	if err != nil {
		return errors.FileReadFailed(x.root, err)
	}

	files := make([]fileEntry, 0, len(paths))
	byPath := make(map[string]int, len(paths))
	for _, p := range paths {
		entry, err := x.stat(p)
		if err != nil {
			// removed between the walk and the stat
			log.Debug().Err(err).Str("path", p).Msg("skip resource file")
			continue
		}
		byPath[p] = len(files)
		files = append(files, entry)
	}

	x.mu.Lock()
	x.files = files
	x.byPath = byPath
	x.mu.Unlock()
	return nil
}

func (x *fileIndex) stat(p string) (fileEntry, error) {
	full := filepath.Join(x.root, filepath.FromSlash(p))
	info, err := os.Lstat(full)
	if err != nil {
		return fileEntry{}, err
	}
	if !info.Mode().IsRegular() {
		return fileEntry{}, os.ErrNotExist
	}
	mt, err := mimetype.DetectFile(full)
	if err != nil {
		return fileEntry{}, err
	}
	return fileEntry{
		Path:     p,
		Size:     info.Size(),
		MimeType: baseType(mt.String()),
		Text:     isText(mt),
	}, nil
}

func (x *fileIndex) list() []fileEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.files
}

func (x *fileIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.files)
}

// lookup finds p in the index, falling back to the disk for files the
// watcher has not reported yet. p must be a clean relative slash path.
func (x *fileIndex) lookup(p string) (fileEntry, error) {
	if !validPath(p) {
		return fileEntry{}, errors.InvalidParam("uri", "invalid path")
	}

	x.mu.RLock()
	i, ok := x.byPath[p]
	var entry fileEntry
	if ok {
		entry = x.files[i]
	}
	x.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if util.IsHidden(p) || !x.within(p) {
		return fileEntry{}, errors.FileNotFound(p)
	}
	entry, err := x.stat(p)
	if err != nil {
		return fileEntry{}, errors.FileNotFound(p)
	}
	return entry, nil
}

func (x *fileIndex) read(entry fileEntry) ([]byte, error) {
	full := filepath.Join(x.root, filepath.FromSlash(entry.Path))
	info, err := os.Lstat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(entry.Path)
		}
		return nil, errors.FileReadFailed(entry.Path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.FileNotFound(entry.Path)
	}
	if info.Size() > MaxFileSize {
		return nil, errors.InvalidParam("uri", "file too large: "+util.ByteCountSI(info.Size()))
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.FileReadFailed(entry.Path, err)
	}
	return data, nil
}

// within reports whether p resolves to a location below the root once
// symlinks are followed.
func (x *fileIndex) within(p string) bool {
	root, err := filepath.EvalSymlinks(x.root)
	if err != nil {
		return false
	}
	full, err := filepath.EvalSymlinks(filepath.Join(x.root, filepath.FromSlash(p)))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, full)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validPath accepts clean relative slash paths that stay below the root.
func validPath(p string) bool {
	if p == "" || path.IsAbs(p) || strings.Contains(p, "\\") {
		return false
	}
	if path.Clean(p) != p {
		return false
	}
	return p != ".." && !strings.HasPrefix(p, "../")
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func baseType(mime string) string {
	t, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(t)
}
