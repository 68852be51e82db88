package risk

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"downguard/fuzzy"
	"downguard/hasher"
	"downguard/logger"

	"github.com/djherbis/times"
	"github.com/h2non/filetype"
)

// AnalyzeFile classifies a file by name, size, and content digest. It never
// fails: a missing or unreadable file simply loses its hash and size signals
// and is judged on its name alone. Signals are appended in a fixed order and
// the overall risk only ever escalates.
func AnalyzeFile(ctx context.Context, path string, opts FileOptions) ScanResult {
	filename := filepath.Base(path)
	nameLower := strings.ToLower(filename)
	ext := strings.ToLower(filepath.Ext(nameLower))
	if ext == nameLower {
		// A leading-dot name like ".bashrc" is a hidden file, not an
		// extension.
		ext = ""
	}
	root := strings.TrimSuffix(nameLower, ext)

	res := ScanResult{
		Kind:      KindFile,
		Subject:   path,
		Overall:   Safe,
		ScannedAt: time.Now(),
		Extension: ext,
	}

	algos := opts.HashAlgorithms
	if len(algos) == 0 {
		algos = []string{"sha256"}
	}
	hashes := hasher.ComputeHashes(path, algos)
	res.FileHash = hashes["sha256"]

	size := int64(-1)
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	res.SizeBytes = size
	if size >= 0 {
		res.SizeHuman = FormatFileSize(size)
	} else {
		res.SizeHuman = "unknown"
	}
	if ts, err := times.Stat(path); err == nil && ts.HasBirthTime() {
		res.CreatedAt = ts.BirthTime().Format(time.RFC3339)
	}

	// 1. An empty file usually means a download that never finished.
	if size == 0 {
		res.append(msgEmptyFile.finding(filename))
	}

	// 2. Double extension: invoice.pdf.exe and friends.
	if strings.Contains(root, ".") && dangerousExtensions[ext] {
		fakeExt := root[strings.LastIndex(root, "."):]
		res.append(msgDoubleExtension.finding(filename, fakeExt))
	}

	// 3. Extension class, most dangerous class first.
	switch {
	case dangerousExtensions[ext]:
		res.append(msgDangerousExtension.finding(filename, ext))
	case scriptExtensions[ext]:
		res.append(msgScriptExtension.finding(filename, ext))
	case documentExtensions[ext]:
		res.append(msgDocumentMacroRisk.finding(filename))
	case archiveExtensions[ext]:
		res.append(msgArchiveFile.finding(filename))
	case mediaExtensions[ext]:
		res.append(msgMediaOrSafe.finding(filename, mediaDescription(path, ext)))
	default:
		shown := ext
		if shown == "" {
			shown = "(none)"
		}
		res.append(msgUnknownExtension.finding(filename, shown))
	}

	// 4. Suspicious wording in the filename. Only the first keyword in list
	// order is reported; its weight depends on the extension class.
	if kw := firstSuspiciousKeyword(nameLower); kw != "" {
		switch {
		case dangerousExtensions[ext] || scriptExtensions[ext]:
			res.append(msgSuspiciousNameDanger.finding(filename, kw))
		case documentExtensions[ext] || archiveExtensions[ext]:
			res.append(msgSuspiciousNameCaution.finding(filename, kw))
		}
	}

	// 5. Optional reputation lookup by hash. A failed lookup is no signal.
	if opts.Reputation != nil && res.FileHash != "" {
		if count, ok := opts.Reputation.Detections(ctx, res.FileHash); ok {
			if count == 0 {
				res.append(msgReputationClean.finding())
			} else {
				res.append(msgReputationDetected.finding(count))
			}
		}
	}

	if opts.FuzzyAlgorithm != "" {
		if h, ok := fuzzy.Lookup(opts.FuzzyAlgorithm); ok {
			if digest, err := h.HashFile(path); err == nil {
				res.FuzzyHash = digest
			} else {
				logger.Debugf("Fuzzy hash (%s) failed for %s: %v", opts.FuzzyAlgorithm, path, err)
			}
		}
	}

	return res
}

// mediaDescription prefers a content-sniffed description over the extension
// map so a .jpg that is really a video still reads right. Description only;
// it never changes the risk level.
func mediaDescription(path, ext string) string {
	desc := mediaDescriptions[ext]
	if desc == "" {
		desc = "media file"
	}

	f, err := os.Open(path)
	if err != nil {
		return desc
	}
	defer f.Close()

	// filetype needs at most 261 leading bytes to recognise its types.
	buf := make([]byte, 261)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return desc
	}
	kind, err := filetype.Match(buf[:n])
	if err != nil || kind == filetype.Unknown {
		return desc
	}
	switch {
	case strings.HasPrefix(kind.MIME.Value, "image/"):
		return "photo or image"
	case strings.HasPrefix(kind.MIME.Value, "audio/"):
		return "music or audio file"
	case strings.HasPrefix(kind.MIME.Value, "video/"):
		return "video file"
	}
	return desc
}
