package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Fayeblade1488/venicebridge"
	"github.com/Fayeblade1488/venicebridge/redact"
)

// maxSlugLen caps the prompt-derived portion of an output file name.
const maxSlugLen = 40

// fallbackStem names outputs when the prompt yields no usable slug.
const fallbackStem = "venice_image"

// slug derives a file name fragment from a prompt: lowercase alphanumeric
// runs joined by underscores, truncated to maxSlugLen.
func slug(prompt string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(prompt) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			if b.Len() >= maxSlugLen {
				break
			}
			continue
		}
		pending = true
	}
	return b.String()
}

// stemFor builds the deterministic output file stem
// <name>_<sN|rnd>_<YYYYMMDD_HHMMSS>.
func stemFor(req venicebridge.GenerationRequest, now time.Time) string {
	name := req.OutputName
	if name == "" {
		name = slug(req.Prompt)
	}
	if name == "" {
		name = fallbackStem
	}

	seedTag := "rnd"
	if req.Seed != nil {
		seedTag = fmt.Sprintf("s%d", *req.Seed)
	}

	return fmt.Sprintf("%s_%s_%s", name, seedTag, now.UTC().Format("20060102_150405"))
}

// uniqueStem returns a stem that does not collide with an existing file in
// dir, appending _2, _3, ... when the base name is taken.
func uniqueStem(dir, stem, ext string) string {
	candidate := stem
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate+ext)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", stem, n)
	}
}

// writeAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// partial file at the final path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return venicebridge.NewPersistenceError("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return venicebridge.NewPersistenceError("rename into "+path, err)
	}
	return nil
}

// writeMetadata persists a sidecar metadata document as indented JSON,
// redacted before it touches disk.
func writeMetadata(path string, payload map[string]any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return venicebridge.NewPersistenceError("encode metadata", err)
	}
	return writeAtomic(path, []byte(redact.Redact(string(data))))
}

// outputDirs creates the output directory tree and returns the image,
// upscaled, and metadata directories.
func outputDirs(base string) (imgDir, upDir, metaDir string, err error) {
	imgDir = base
	upDir = filepath.Join(base, "upscaled")
	metaDir = filepath.Join(base, "metadata")
	for _, dir := range []string{imgDir, upDir, metaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", "", venicebridge.NewPersistenceError("create "+dir, err)
		}
	}
	return imgDir, upDir, metaDir, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
