package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-extend/internal/cache"
)

// FileFingerprint identifies a source file by path, size and modification time.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return FileFingerprint{Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (fp FileFingerprint) fields() map[string]string {
	return map[string]string{
		"gtf_path":    fp.Path,
		"gtf_size":    strconv.FormatInt(fp.Size, 10),
		"gtf_modtime": fp.ModTime.UTC().Format(time.RFC3339Nano),
	}
}

// TranscriptCache manages gob-serialized transcript models on disk, so
// repeated runs against the same GTF skip parsing:
//
//	{dir}/transcripts.gob       (serialized transcripts)
//	{dir}/transcripts.gob.meta  (source GTF fingerprint)
type TranscriptCache struct {
	dir string
}

// NewTranscriptCache creates a transcript cache for the given directory.
func NewTranscriptCache(dir string) *TranscriptCache {
	return &TranscriptCache{dir: dir}
}

func (tc *TranscriptCache) gobPath() string {
	return filepath.Join(tc.dir, "transcripts.gob")
}

func (tc *TranscriptCache) metaPath() string {
	return filepath.Join(tc.dir, "transcripts.gob.meta")
}

// Valid reports whether the cached transcripts were built from gtf.
func (tc *TranscriptCache) Valid(gtf FileFingerprint) bool {
	meta, err := tc.readMeta()
	if err != nil {
		return false
	}
	for k, v := range gtf.fields() {
		if meta[k] != v {
			return false
		}
	}
	_, err = os.Stat(tc.gobPath())
	return err == nil
}

// Load reads serialized transcripts from disk into c.
func (tc *TranscriptCache) Load(c *cache.Cache) error {
	f, err := os.Open(tc.gobPath())
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}
	defer f.Close()

	var transcripts []*cache.Transcript
	if err := gob.NewDecoder(f).Decode(&transcripts); err != nil {
		return fmt.Errorf("decode transcript cache: %w", err)
	}
	for _, t := range transcripts {
		c.AddTranscript(t)
	}
	return nil
}

// Write serializes every transcript of c to disk and records the GTF
// fingerprint it was built from.
func (tc *TranscriptCache) Write(c *cache.Cache, gtf FileFingerprint) error {
	if err := os.MkdirAll(tc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	f, err := os.Create(tc.gobPath())
	if err != nil {
		return fmt.Errorf("create transcript cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(c.Transcripts()); err != nil {
		f.Close()
		os.Remove(tc.gobPath())
		return fmt.Errorf("encode transcript cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close transcript cache: %w", err)
	}

	return tc.writeMeta(gtf)
}

// Clear removes the cached transcript files.
func (tc *TranscriptCache) Clear() {
	os.Remove(tc.gobPath())
	os.Remove(tc.metaPath())
}

func (tc *TranscriptCache) writeMeta(gtf FileFingerprint) error {
	var b strings.Builder
	for _, k := range []string{"gtf_path", "gtf_size", "gtf_modtime"} {
		b.WriteString(k + "=" + gtf.fields()[k] + "\n")
	}
	b.WriteString("created_at=" + time.Now().UTC().Format(time.RFC3339) + "\n")
	return os.WriteFile(tc.metaPath(), []byte(b.String()), 0644)
}

func (tc *TranscriptCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(tc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
