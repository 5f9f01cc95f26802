package corpus

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/studystack/campusrag/internal/rag"
)

// DefaultMaxFileSize is the largest file the loader will read (4 MB).
// Anything bigger is almost certainly not a campus document.
const DefaultMaxFileSize int64 = 4 << 20

// supportedExtensions maps readable file extensions to their reader. PDF
// extraction is deliberately absent: extraction quality is a delegated
// concern, and PDFs arrive here as pre-extracted text files.
var supportedExtensions = map[string]func(path string) (string, error){
	".txt":      readText,
	".text":     readText,
	".md":       readMarkdown,
	".markdown": readMarkdown,
	".csv":      readCSV,
}

// Loader turns the data directory into raw inputs for the pipeline. The
// first path element under the data directory is the document's category:
// data/syllabus/ml.txt is a "syllabus" document, files at the top level
// fall back to the default category.
type Loader struct {
	dataDir string
	include []string
	exclude []string
}

// NewLoader creates a loader rooted at dataDir with optional include and
// exclude glob patterns matched against paths relative to the root.
func NewLoader(dataDir string, include, exclude []string) *Loader {
	return &Loader{dataDir: dataDir, include: include, exclude: exclude}
}

// DataDir returns the loader's root directory.
func (l *Loader) DataDir() string { return l.dataDir }

// Load walks the data directory and reads every supported file into a raw
// input. Unsupported and unreadable files are skipped with a log line so a
// stray binary cannot abort a whole seeding run.
func (l *Loader) Load() ([]rag.RawInput, error) {
	root, err := filepath.Abs(l.dataDir)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve data dir: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("corpus: data dir %s: %w", l.dataDir, err)
	}

	var inputs []rag.RawInput
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !l.matches(relPath) {
			return nil
		}

		if info, err := d.Info(); err != nil || info.Size() > DefaultMaxFileSize {
			if err == nil {
				log.Printf("corpus: skipping %s (%d bytes exceeds limit)", relPath, info.Size())
			}
			return nil
		}

		in, err := l.loadOne(path, relPath)
		if err != nil {
			log.Printf("corpus: skipping %s: %v", relPath, err)
			return nil
		}
		inputs = append(inputs, in)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walking %s: %w", l.dataDir, err)
	}
	return inputs, nil
}

// LoadFile reads a single file under the data directory. The watcher uses
// this for incremental updates.
func (l *Loader) LoadFile(path string) (rag.RawInput, error) {
	root, err := filepath.Abs(l.dataDir)
	if err != nil {
		return rag.RawInput{}, fmt.Errorf("corpus: resolve data dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return rag.RawInput{}, fmt.Errorf("corpus: resolve %s: %w", path, err)
	}
	relPath, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return rag.RawInput{}, fmt.Errorf("corpus: %s is outside the data dir", path)
	}
	if !l.matches(relPath) {
		return rag.RawInput{}, fmt.Errorf("corpus: %s is excluded by pattern", relPath)
	}
	return l.loadOne(abs, relPath)
}

// SourcePath returns the canonical source path recorded for a file, which
// is also what its document ID is derived from.
func (l *Loader) SourcePath(path string) (string, error) {
	root, err := filepath.Abs(l.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	relPath, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relPath), nil
}

func (l *Loader) loadOne(path, relPath string) (rag.RawInput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	read, ok := supportedExtensions[ext]
	if !ok {
		return rag.RawInput{}, fmt.Errorf("unsupported file type %q", ext)
	}

	text, err := read(path)
	if err != nil {
		return rag.RawInput{}, err
	}

	relSlash := filepath.ToSlash(relPath)
	return rag.RawInput{
		Text:       text,
		SourcePath: relSlash,
		Category:   categoryOf(relSlash),
		Extra: map[string]string{
			"filename":  filepath.Base(path),
			"file_type": strings.TrimPrefix(ext, "."),
		},
	}, nil
}

// matches applies the include and exclude globs. Empty include means
// everything is included.
func (l *Loader) matches(relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	if len(l.include) > 0 && !matchesAny(normalized, l.include) {
		return false
	}
	return !matchesAny(normalized, l.exclude)
}

// matchesAny checks relPath against glob patterns with ** support, also
// matching bare filenames so a pattern like "*.tmp" works anywhere in the
// tree.
func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(relPath)); err == nil && matched {
			return true
		}
	}
	return false
}

// categoryOf derives the category from the first directory component of a
// slash-separated relative path.
func categoryOf(relSlash string) string {
	if i := strings.IndexByte(relSlash, '/'); i > 0 {
		return relSlash[:i]
	}
	return rag.DefaultCategory
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readCSV renders a CSV file as readable text: a header line followed by
// one "header: value | header: value" line per row, which keeps each row a
// self-contained statement after chunking.
func readCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	var sb strings.Builder
	sb.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")

	for _, row := range records[1:] {
		var fields []string
		for i, value := range row {
			if value == "" {
				continue
			}
			name := "column " + strconv.Itoa(i+1)
			if i < len(headers) {
				name = headers[i]
			}
			fields = append(fields, name+": "+value)
		}
		if len(fields) > 0 {
			sb.WriteString(strings.Join(fields, " | ") + "\n")
		}
	}
	return sb.String(), nil
}
