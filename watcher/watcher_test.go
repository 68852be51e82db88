package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func collectHandler() (func(string), func() []string) {
	var mu sync.Mutex
	var got []string
	handler := func(path string) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}
	return handler, snapshot
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestNewFileFiresExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	handler, snapshot := collectHandler()

	w := New(dir, handler, WithPollInterval(50*time.Millisecond), WithStableTimeout(2*time.Second))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	defer func() { w.Stop(); <-done }()

	time.Sleep(120 * time.Millisecond)
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("finished content"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return len(snapshot()) == 1 }) {
		t.Fatalf("expected one callback, got %d", len(snapshot()))
	}
	if snapshot()[0] != path {
		t.Fatalf("callback for wrong path: %s", snapshot()[0])
	}

	// No second callback for the same file on later polls.
	time.Sleep(300 * time.Millisecond)
	if got := len(snapshot()); got != 1 {
		t.Fatalf("file reported %d times", got)
	}
}

func TestPreexistingFilesNeverFire(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.exe"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	handler, snapshot := collectHandler()

	w := New(dir, handler, WithPollInterval(50*time.Millisecond))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	time.Sleep(400 * time.Millisecond)
	w.Stop()
	<-done

	if got := snapshot(); len(got) != 0 {
		t.Fatalf("pre-existing file reported: %v", got)
	}
}

func TestTempDownloadNamesIgnored(t *testing.T) {
	dir := t.TempDir()
	handler, snapshot := collectHandler()

	w := New(dir, handler, WithPollInterval(50*time.Millisecond))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	defer func() { w.Stop(); <-done }()

	time.Sleep(120 * time.Millisecond)
	for _, name := range []string{"video.mp4.crdownload", "setup.exe.part", "doc.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("partial"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(400 * time.Millisecond)
	if got := snapshot(); len(got) != 0 {
		t.Fatalf("in-progress download reported: %v", got)
	}
}

func TestSubdirectoriesIgnored(t *testing.T) {
	dir := t.TempDir()
	handler, snapshot := collectHandler()

	w := New(dir, handler, WithPollInterval(50*time.Millisecond))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	defer func() { w.Stop(); <-done }()

	time.Sleep(120 * time.Millisecond)
	if err := os.Mkdir(filepath.Join(dir, "unpacked"), 0755); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)
	if got := snapshot(); len(got) != 0 {
		t.Fatalf("directory reported as download: %v", got)
	}
}

func TestMissingFolderReturnsImmediately(t *testing.T) {
	handler, _ := collectHandler()
	w := New(filepath.Join(t.TempDir(), "nope"), handler)

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return for a missing folder")
	}
}

func TestStopIsBoundedAndIdempotent(t *testing.T) {
	dir := t.TempDir()
	handler, _ := collectHandler()
	w := New(dir, handler, WithPollInterval(50*time.Millisecond))

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	time.Sleep(120 * time.Millisecond)

	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop promptly")
	}
}

func TestHandlerPanicDoesNotKillWatcher(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	calls := 0
	handler := func(path string) {
		mu.Lock()
		calls++
		mu.Unlock()
		if filepath.Base(path) == "bad.bin" {
			panic("handler bug")
		}
	}

	w := New(dir, handler, WithPollInterval(50*time.Millisecond), WithStableTimeout(2*time.Second))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	defer func() { w.Stop(); <-done }()

	time.Sleep(120 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "bad.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 5*time.Second, func() bool { mu.Lock(); defer mu.Unlock(); return calls == 1 }) {
		t.Fatal("panicking handler never invoked")
	}

	if err := os.WriteFile(filepath.Join(dir, "good.bin"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 5*time.Second, func() bool { mu.Lock(); defer mu.Unlock(); return calls == 2 }) {
		t.Fatal("watcher stopped polling after a handler panic")
	}
}

func TestGrowingFileWaitsForFinalSize(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var sizes []int64
	handler := func(path string) {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("stat in handler: %v", err)
			return
		}
		mu.Lock()
		sizes = append(sizes, info.Size())
		mu.Unlock()
	}
	count := func() int { mu.Lock(); defer mu.Unlock(); return len(sizes) }

	w := New(dir, handler, WithPollInterval(50*time.Millisecond), WithStableTimeout(10*time.Second))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()
	defer func() { w.Stop(); <-done }()

	time.Sleep(120 * time.Millisecond)
	path := filepath.Join(dir, "big.iso")
	chunk := make([]byte, 1024)
	if err := os.WriteFile(path, chunk, 0644); err != nil {
		t.Fatal(err)
	}

	// Keep appending faster than the stability sampling cadence, so no two
	// consecutive size checks can agree while the download is in flight.
	for i := 0; i < 4; i++ {
		time.Sleep(300 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(chunk); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}
	finalSize := int64(5 * 1024)

	if count() != 0 {
		t.Fatal("handler fired while the file was still growing")
	}
	if !waitFor(t, 5*time.Second, func() bool { return count() == 1 }) {
		t.Fatalf("expected one callback after the file settled, got %d", count())
	}
	mu.Lock()
	got := sizes[0]
	mu.Unlock()
	if got != finalSize {
		t.Fatalf("handler saw %d bytes, want the final %d", got, finalSize)
	}

	time.Sleep(400 * time.Millisecond)
	if count() != 1 {
		t.Fatalf("settled file reported %d times", count())
	}
}

func TestStopSuppressesPendingHandlers(t *testing.T) {
	dir := t.TempDir()
	handler, snapshot := collectHandler()

	w := New(dir, handler, WithPollInterval(50*time.Millisecond), WithStableTimeout(10*time.Second))
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	time.Sleep(120 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "late.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// Stop while the file is still inside its stability wait; the pending
	// handoff must be dropped, not delivered after shutdown.
	time.Sleep(150 * time.Millisecond)
	w.Stop()
	<-done

	time.Sleep(1500 * time.Millisecond)
	if got := snapshot(); len(got) != 0 {
		t.Fatalf("handler ran after Stop: %v", got)
	}
}

func TestFingerprintSeesInPlaceRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte("aaaa"), 0644); err != nil {
		t.Fatal(err)
	}
	fp1, err := fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("bbbb"), 0644); err != nil {
		t.Fatal(err)
	}
	fp2, err := fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp1 == fp2 {
		t.Fatal("same-size rewrite produced identical fingerprints")
	}
}
