package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"downguard/config"
	"downguard/logger"
	"downguard/output"
	"downguard/reputation"
	"downguard/risk"
	"downguard/sysinfo"
	"downguard/update"
	"downguard/utils"
	"downguard/version"
	"downguard/watcher"
)

type appFlags struct {
	configPath string
	logLevel   string

	checkFile    string
	checkURL     string
	scanFolder   string
	showHistory  bool
	clearHistory bool
	showStatus   bool
	showVersion  bool

	setFolder       string
	setContactName  string
	setContactEmail string
	setVTKey        string
	setSBKey        string

	reportPath string
	workers    int
	ioLimit    float64
	include    string
	exclude    string

	hashAlgos string
	fuzzyAlgo string

	noKeychain      bool
	pollInterval    time.Duration
	otelEndpoint    string
	otelFromEnv     bool
	otelExportPaths bool
}

func parseFlags(args []string) (*appFlags, error) {
	f := &appFlags{}
	fs := flag.NewFlagSet("downguard", flag.ContinueOnError)

	fs.StringVar(&f.configPath, "config", config.DefaultPath(), "path to the settings file")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	fs.StringVar(&f.checkFile, "check-file", "", "classify one file and exit")
	fs.StringVar(&f.checkURL, "check-url", "", "classify one web address and exit")
	fs.StringVar(&f.scanFolder, "scan", "", "scan every file in a folder and exit")
	fs.BoolVar(&f.showHistory, "history", false, "print recent scan results and exit")
	fs.BoolVar(&f.clearHistory, "clear-history", false, "forget all recorded scan results and exit")
	fs.BoolVar(&f.showStatus, "status", false, "print the current configuration and exit")
	fs.BoolVar(&f.showVersion, "version", false, "print the version and exit")

	fs.StringVar(&f.setFolder, "set-folder", "", "change the watched downloads folder and exit")
	fs.StringVar(&f.setContactName, "set-contact-name", "", "set the trusted contact's name")
	fs.StringVar(&f.setContactEmail, "set-contact-email", "", "set the trusted contact's email address")
	fs.StringVar(&f.setVTKey, "set-virustotal-key", "", "store the VirusTotal API key and exit")
	fs.StringVar(&f.setSBKey, "set-safebrowsing-key", "", "store the Safe Browsing API key and exit")

	fs.StringVar(&f.reportPath, "report", "", "also write results to this NDJSON report file")
	fs.IntVar(&f.workers, "workers", 4, "concurrent scans during -scan")
	fs.Float64Var(&f.ioLimit, "io-limit", 0, "max files started per second during -scan (0 = unlimited)")
	fs.StringVar(&f.include, "include", "", "comma-separated patterns to include during -scan")
	fs.StringVar(&f.exclude, "exclude", "", "comma-separated patterns to exclude during -scan")

	fs.StringVar(&f.hashAlgos, "hashes", "sha256", "comma-separated hash algorithms")
	fs.StringVar(&f.fuzzyAlgo, "fuzzy", "", "fuzzy hash algorithm (e.g. tlsh)")

	fs.BoolVar(&f.noKeychain, "no-keychain", false, "keep API keys in the config file instead of the credential store")
	fs.DurationVar(&f.pollInterval, "poll-interval", 2*time.Second, "how often to look for new downloads")
	fs.StringVar(&f.otelEndpoint, "otel-endpoint", "", "OTLP log endpoint for report records")
	fs.BoolVar(&f.otelFromEnv, "otel-from-env", false, "read the OTLP endpoint from OTEL_EXPORTER_OTLP_* variables")
	fs.BoolVar(&f.otelExportPaths, "otel-export-paths", false, "include full file paths in exported records")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	logger.Init(f.logLevel)

	if f.showVersion {
		fmt.Println(version.Version)
		return
	}

	if latest, notes, newer, err := update.CheckForUpdate(version.Version); err == nil && newer {
		if strings.Contains(strings.ToLower(notes), "security") {
			logger.Warnf("Update available: %s -> %s (security fixes included)", version.Version, latest)
		} else {
			logger.Infof("Update available: %s -> %s", version.Version, latest)
		}
	}

	var kc config.Keychain
	if !f.noKeychain {
		kc = config.SystemKeychain()
	}
	store := config.Load(f.configPath, kc)

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := dispatch(ctx, f, store); err != nil {
		logger.Fatalf("%v", err)
	}
}

func dispatch(ctx context.Context, f *appFlags, store *config.Store) error {
	switch {
	case f.setFolder != "":
		store.SetDownloadsFolder(f.setFolder)
		fmt.Printf("Now watching: %s\n", f.setFolder)
		return nil
	case f.setContactName != "" || f.setContactEmail != "":
		name, email := store.TrustedContact()
		if f.setContactName != "" {
			name = f.setContactName
		}
		if f.setContactEmail != "" {
			email = f.setContactEmail
		}
		if err := store.SetTrustedContact(name, email); err != nil {
			logger.Warnf("Contact saved, but: %v", err)
		}
		return nil
	case f.setVTKey != "":
		return store.SetSecret(config.KeyVirusTotal, f.setVTKey)
	case f.setSBKey != "":
		return store.SetSecret(config.KeySafeBrowsing, f.setSBKey)
	case f.clearHistory:
		store.ClearScanHistory()
		fmt.Println("Scan history cleared.")
		return nil
	case f.showHistory:
		printHistory(os.Stdout, store.History())
		return nil
	case f.showStatus:
		printStatus(os.Stdout, store)
		return nil
	case f.checkURL != "":
		res := risk.AnalyzeURL(ctx, f.checkURL, risk.URLOptions{Reputation: urlReputation(store)})
		renderResult(os.Stdout, res)
		store.AddScanHistory(res)
		return nil
	case f.checkFile != "":
		res := risk.AnalyzeFile(ctx, f.checkFile, fileOptions(f, store))
		renderResult(os.Stdout, res)
		store.AddScanHistory(res)
		return nil
	case f.scanFolder != "":
		return runBatchScan(ctx, f, store)
	default:
		return runWatch(ctx, f, store)
	}
}

func fileOptions(f *appFlags, store *config.Store) risk.FileOptions {
	return risk.FileOptions{
		Reputation:     fileReputation(store),
		HashAlgorithms: splitList(f.hashAlgos),
		FuzzyAlgorithm: f.fuzzyAlgo,
	}
}

func fileReputation(store *config.Store) risk.FileReputation {
	key := store.Secret(config.KeyVirusTotal)
	if key == "" {
		return nil
	}
	return reputation.NewVirusTotal(key)
}

func urlReputation(store *config.Store) risk.URLReputation {
	key := store.Secret(config.KeySafeBrowsing)
	if key == "" {
		return nil
	}
	return reputation.NewSafeBrowsing(key)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runWatch polls the downloads folder until interrupted, classifying every
// completed download.
func runWatch(ctx context.Context, f *appFlags, store *config.Store) error {
	folder := store.DownloadsFolder()
	writer, err := newReportWriter(f, folder)
	if err != nil {
		return err
	}
	if writer != nil {
		defer writer.Close()
	}

	opts := fileOptions(f, store)
	w := watcher.New(folder, func(path string) {
		res := risk.AnalyzeFile(ctx, path, opts)
		renderResult(os.Stdout, res)
		store.AddScanHistory(res)
		if writer != nil {
			writer.WriteResult(res)
		}
	}, watcher.WithPollInterval(f.pollInterval))

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	w.Run()
	logger.Info("Watcher stopped.")
	return nil
}

// runBatchScan classifies every regular file directly inside the folder
// using a small worker pool.
func runBatchScan(ctx context.Context, f *appFlags, store *config.Store) error {
	folder := f.scanFolder
	targets, err := collectScanTargets(folder, splitList(f.include), splitList(f.exclude))
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("Nothing to scan.")
		return nil
	}

	writer, err := newReportWriter(f, folder)
	if err != nil {
		return err
	}
	if writer != nil {
		defer writer.Close()
	}

	bar := progressbar.NewOptions(len(targets),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	var limiter *rate.Limiter
	if f.ioLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(f.ioLimit), 1)
	}

	workers := f.workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string)
	results := make(chan risk.ScanResult)
	opts := fileOptions(f, store)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				results <- risk.AnalyzeFile(ctx, path, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range targets {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	dangers := 0
	store.Batch(func() {
		for res := range results {
			_ = bar.Add(1)
			if res.Overall == risk.Danger {
				dangers++
				renderResult(os.Stdout, res)
			}
			store.AddScanHistory(res)
			if writer != nil {
				writer.WriteResult(res)
			}
		}
	})

	fmt.Printf("\nScanned %d file(s); %d need attention.\n", len(targets), dangers)
	return ctx.Err()
}

// collectScanTargets lists regular files directly inside folder, applying
// include/exclude patterns and refusing anything that resolves outside it.
func collectScanTargets(folder string, include, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", folder, err)
	}
	matcher := utils.NewPatternMatcher(include, exclude)

	var targets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if info, err := e.Info(); err != nil || !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(folder, e.Name())
		if !matcher.ShouldInclude(path) {
			continue
		}
		if !utils.IsPathWithin(path, []string{folder}) {
			logger.Warnf("Skipping %s: resolves outside the scanned folder", path)
			continue
		}
		targets = append(targets, path)
	}
	return targets, nil
}

func newReportWriter(f *appFlags, watchFolder string) (*output.Writer, error) {
	if f.reportPath == "" && f.otelEndpoint == "" && !f.otelFromEnv {
		return nil, nil
	}
	path := f.reportPath
	if path == "" {
		path = filepath.Join(os.TempDir(), "downguard-report.ndjson")
	}
	return output.New(output.Options{
		Path:            path,
		Host:            sysinfo.Collect(watchFolder),
		OtelEndpoint:    f.otelEndpoint,
		OtelFromEnv:     f.otelFromEnv,
		OtelExportPaths: f.otelExportPaths,
	})
}

func renderResult(w io.Writer, res risk.ScanResult) {
	fmt.Fprintf(w, "\n%s\n", res.Subject)
	fmt.Fprintf(w, "Overall: %s\n", strings.ToUpper(res.Overall.String()))
	for _, finding := range res.Findings {
		fmt.Fprintf(w, "  %s\n    %s\n", finding.Title, finding.Detail)
	}
	if res.Kind == risk.KindFile && res.SizeHuman != "" {
		fmt.Fprintf(w, "  Size: %s\n", res.SizeHuman)
	}
}

func printHistory(w io.Writer, history []risk.ScanResult) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No scans recorded yet.")
		return
	}
	for _, res := range history {
		fmt.Fprintf(w, "%s  %-7s  %s\n",
			res.ScannedAt.Format("2006-01-02 15:04"),
			res.Overall.String(),
			res.Subject)
	}
}

func printStatus(w io.Writer, store *config.Store) {
	name, email := store.TrustedContact()
	fmt.Fprintf(w, "Watched folder:  %s\n", store.DownloadsFolder())
	if name != "" || email != "" {
		fmt.Fprintf(w, "Trusted contact: %s <%s>\n", name, email)
	} else {
		fmt.Fprintln(w, "Trusted contact: not set")
	}
	fmt.Fprintf(w, "VirusTotal key:  %s\n", keyStatus(store.Secret(config.KeyVirusTotal)))
	fmt.Fprintf(w, "Safe Browsing:   %s\n", keyStatus(store.Secret(config.KeySafeBrowsing)))
	fmt.Fprintf(w, "Scans recorded:  %d\n", len(store.History()))
}

func keyStatus(key string) string {
	if key == "" {
		return "not configured"
	}
	return "configured"
}
