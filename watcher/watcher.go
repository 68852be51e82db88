// Package watcher polls a folder for newly completed downloads and hands
// each finished file to a handler exactly once per run.
package watcher

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"downguard/logger"
)

// Browsers write downloads under a temporary name or extension until the
// transfer finishes; those never reach the handler.
var tempSuffixes = []string{".crdownload", ".part", ".partial", ".download", ".tmp"}

const (
	defaultPollInterval  = 2 * time.Second
	defaultStableTimeout = 30 * time.Second
	stabilityInterval    = 500 * time.Millisecond
	fingerprintBytes     = 64 * 1024
)

// Watcher polls one folder and invokes the handler for each file that
// appears after Run starts and then stops changing. Files already present
// at startup are remembered, not reported.
type Watcher struct {
	folder        string
	handler       func(path string)
	pollInterval  time.Duration
	stableTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once

	seen map[string]struct{}
}

// Option tweaks a Watcher before Run.
type Option func(*Watcher)

// WithPollInterval overrides the folder polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithStableTimeout bounds how long a growing file is watched before it is
// handed off anyway.
func WithStableTimeout(d time.Duration) Option {
	return func(w *Watcher) { w.stableTimeout = d }
}

func New(folder string, handler func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		folder:        folder,
		handler:       handler,
		pollInterval:  defaultPollInterval,
		stableTimeout: defaultStableTimeout,
		stop:          make(chan struct{}),
		seen:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until Stop is called. It blocks; callers run it in a goroutine.
func (w *Watcher) Run() {
	if _, err := os.Stat(w.folder); err != nil {
		logger.Warnf("Watch folder %s is not accessible: %v", w.folder, err)
		return
	}

	// Baseline: everything already present is old news.
	if names, err := w.listFiles(); err == nil {
		for _, name := range names {
			w.seen[name] = struct{}{}
		}
	}
	logger.Infof("Watching %s for new downloads", w.folder)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// Stop ends the Run loop. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) poll() {
	names, err := w.listFiles()
	if err != nil {
		// Keep the previous baseline so nothing fires twice once the
		// folder comes back.
		logger.Warnf("Could not list %s: %v", w.folder, err)
		return
	}

	current := make(map[string]struct{}, len(names))
	for _, name := range names {
		current[name] = struct{}{}
		if _, known := w.seen[name]; known {
			continue
		}
		w.seen[name] = struct{}{}
		if isTempDownload(name) {
			continue
		}
		// Own goroutine so a slow stability wait never blocks polling.
		go w.handleNewFile(filepath.Join(w.folder, name))
	}

	// Deleted files may come back later; treat them as new again.
	for name := range w.seen {
		if _, still := current[name]; !still {
			delete(w.seen, name)
		}
	}
}

func (w *Watcher) listFiles() ([]string, error) {
	entries, err := os.ReadDir(w.folder)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func isTempDownload(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (w *Watcher) handleNewFile(path string) {
	if !w.waitUntilStable(path) {
		return
	}
	// Stop may have been called while we waited for the file to settle.
	select {
	case <-w.stop:
		return
	default:
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Handler panicked on %s: %v", path, r)
		}
	}()
	w.handler(path)
}

// waitUntilStable samples the file until two consecutive fingerprints agree
// or the deadline passes. Returns false only when the file vanished.
func (w *Watcher) waitUntilStable(path string) bool {
	deadline := time.Now().Add(w.stableTimeout)
	var last fileFingerprint
	havePrev := false

	for {
		fp, err := fingerprint(path)
		if err != nil {
			logger.Debugf("File %s disappeared before it settled: %v", path, err)
			return false
		}
		if havePrev && fp == last {
			return true
		}
		last, havePrev = fp, true

		if time.Now().After(deadline) {
			logger.Warnf("File %s still changing after %s, scanning anyway", path, w.stableTimeout)
			return true
		}
		select {
		case <-w.stop:
			return false
		case <-time.After(stabilityInterval):
		}
	}
}

type fileFingerprint struct {
	size int64
	head uint64
}

// fingerprint captures the size plus a hash of the leading bytes, so a
// download that rewrites in place without growing is still seen as changing.
func fingerprint(path string) (fileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileFingerprint{}, err
	}
	fp := fileFingerprint{size: info.Size()}

	f, err := os.Open(path)
	if err != nil {
		return fileFingerprint{}, err
	}
	defer f.Close()

	buf := make([]byte, fingerprintBytes)
	n, err := f.Read(buf)
	if n > 0 {
		fp.head = xxhash.Sum64(buf[:n])
	} else if err != nil && !errors.Is(err, io.EOF) {
		return fileFingerprint{}, err
	}
	return fp, nil
}
