package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"downguard/logger"
	"downguard/risk"
)

const historyLimit = 100

// Names of the two settings routed to the credential store.
const (
	KeyVirusTotal   = "virustotal_api_key"
	KeySafeBrowsing = "safe_browsing_api_key"
)

var secretKeys = map[string]bool{
	KeyVirusTotal:   true,
	KeySafeBrowsing: true,
}

// Settings is the on-disk schema. Unknown keys in the file simply have
// nowhere to land when decoding and are dropped on the next write, so a
// malformed external edit cannot grow the file forever. The two API-key
// fields are populated only when no credential store is available.
type Settings struct {
	DownloadsFolder     string            `json:"downloads_folder"`
	TrustedContactName  string            `json:"trusted_contact_name"`
	TrustedContactEmail string            `json:"trusted_contact_email"`
	ScanHistory         []risk.ScanResult `json:"scan_history"`

	VirusTotalAPIKey   string `json:"virustotal_api_key,omitempty"`
	SafeBrowsingAPIKey string `json:"safe_browsing_api_key,omitempty"`
}

// Store owns the durable settings for one running process. Every operation
// on the in-memory state is serialized by one mutex, and every mutation is
// flushed with an atomic temp-write-then-rename unless grouped in a Batch.
type Store struct {
	mu    sync.Mutex
	path  string
	kc    Keychain
	data  Settings
	batch int
}

// Seam for the crash-safety test.
var renameFile = os.Rename

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".downguard_config.json"
	}
	return filepath.Join(home, ".downguard_config.json")
}

func defaultSettings() Settings {
	folder := "Downloads"
	if home, err := os.UserHomeDir(); err == nil {
		folder = filepath.Join(home, "Downloads")
	}
	return Settings{DownloadsFolder: folder}
}

// Load reads the config file (missing or unreadable files fall back to
// defaults) and migrates any legacy plaintext API keys into the credential
// store when one is available, rewriting the file without them.
func Load(path string, kc Keychain) *Store {
	s := &Store{path: path, kc: kc, data: defaultSettings()}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, &s.data); jsonErr != nil {
			logger.Warnf("Could not parse config %s, starting from defaults: %v", path, jsonErr)
			s.data = defaultSettings()
		}
	case os.IsNotExist(err):
		// First run.
	default:
		logger.Warnf("Could not read config %s: %v", path, err)
	}

	if len(s.data.ScanHistory) > historyLimit {
		s.data.ScanHistory = s.data.ScanHistory[:historyLimit]
	}

	if s.kc != nil && s.migrateLegacySecrets() {
		if err := s.persistLocked(); err != nil {
			logger.Errorf("Could not rewrite config after secret migration: %v", err)
		}
	}
	return s
}

// migrateLegacySecrets moves plaintext keys into the keychain and strips
// them from the in-memory state. A key is only stripped once the credential
// store confirmed the write; a failed write keeps the plaintext value so the
// secret is never lost. Returns true when a rewrite is needed.
func (s *Store) migrateLegacySecrets() bool {
	migrated := false
	migrate := func(name string, field *string) {
		if *field == "" {
			return
		}
		logger.Infof("Migrating %s from config file to credential store", name)
		if err := s.kc.Set(name, *field); err != nil {
			logger.Warnf("Credential store write failed for %s, keeping it in the config file: %v", name, err)
			return
		}
		*field = ""
		migrated = true
	}
	migrate(KeyVirusTotal, &s.data.VirusTotalAPIKey)
	migrate(KeySafeBrowsing, &s.data.SafeBrowsingAPIKey)
	return migrated
}

func (s *Store) DownloadsFolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DownloadsFolder
}

func (s *Store) SetDownloadsFolder(folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DownloadsFolder = folder
	s.persistLoggedLocked()
}

func (s *Store) TrustedContact() (name, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.TrustedContactName, s.data.TrustedContactEmail
}

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidEmail is a cheap well-formedness check, not a deliverability one.
func IsValidEmail(address string) bool {
	return emailRE.MatchString(address)
}

// SetTrustedContact stores the contact either way; the returned error only
// reports that the email failed the well-formedness check so a caller can
// warn the user. The fields are informational.
func (s *Store) SetTrustedContact(name, email string) error {
	s.mu.Lock()
	s.data.TrustedContactName = name
	s.data.TrustedContactEmail = email
	s.persistLoggedLocked()
	s.mu.Unlock()

	if email != "" && !IsValidEmail(email) {
		return fmt.Errorf("email address %q doesn't look right", email)
	}
	return nil
}

// Secret returns the named API key, reading the credential store when one
// is available and the plaintext fallback field otherwise.
func (s *Store) Secret(name string) string {
	if !secretKeys[name] {
		return ""
	}
	if s.kc != nil {
		value, err := s.kc.Get(name)
		if err == nil {
			return value
		}
		if err != ErrSecretNotFound {
			logger.Warnf("Credential store read failed for %s: %v", name, err)
		}
		// Fall through: a legacy value whose migration failed still lives
		// in the plaintext field.
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case KeyVirusTotal:
		return s.data.VirusTotalAPIKey
	case KeySafeBrowsing:
		return s.data.SafeBrowsingAPIKey
	}
	return ""
}

// SetSecret routes the named API key to the credential store, or to the
// plaintext fallback field (and disk) when no store is available.
func (s *Store) SetSecret(name, value string) error {
	if !secretKeys[name] {
		return fmt.Errorf("not a secret setting: %s", name)
	}
	if s.kc != nil {
		return s.kc.Set(name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case KeyVirusTotal:
		s.data.VirusTotalAPIKey = value
	case KeySafeBrowsing:
		s.data.SafeBrowsingAPIKey = value
	}
	return s.persistLocked()
}

// AddScanHistory prepends the result, drops anything past the cap, and
// persists.
func (s *Store) AddScanHistory(entry risk.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append([]risk.ScanResult{entry}, s.data.ScanHistory...)
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}
	s.data.ScanHistory = history
	s.persistLoggedLocked()
}

func (s *Store) ClearScanHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ScanHistory = nil
	s.persistLoggedLocked()
}

// History returns an independent copy; callers can't reach the internal
// slices through it.
func (s *Store) History() []risk.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]risk.ScanResult, len(s.data.ScanHistory))
	copy(out, s.data.ScanHistory)
	for i := range out {
		out[i].Findings = append([]risk.Finding(nil), out[i].Findings...)
	}
	return out
}

// Batch groups mutations into a single flush on exit. The flush runs even
// when fn panics; the panic still propagates.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batch++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.batch--
		if s.batch == 0 {
			if err := s.persistLocked(); err != nil {
				logger.Errorf("Could not save config: %v", err)
			}
		}
	}()

	fn()
}

func (s *Store) persistLoggedLocked() {
	if err := s.persistLocked(); err != nil {
		logger.Errorf("Could not save config to %s: %v", s.path, err)
	}
}

// persistLocked writes the current state to disk. Callers hold s.mu. Inside
// a batch it does nothing; the batch exit flushes once.
func (s *Store) persistLocked() error {
	if s.batch > 0 {
		return nil
	}

	// The plaintext key fields are empty unless there is no credential
	// store, or a legacy value could not be migrated into it; in both cases
	// keeping them on disk is what preserves the secret.
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, raw)
}

// writeAtomic replaces path via a same-directory temp file that is flushed
// and fsynced before the rename, so a crash at any point leaves either the
// old complete file or the new complete file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".downguard-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := renameFile(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
