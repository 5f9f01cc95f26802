package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during corpus indexing. Document has
// the same shape as the pipeline's progress callback, so a Reporter can be
// handed to a bulk reindex directly via its Document method.
type Reporter interface {
	Start(total int)
	Document(done, total int, sourcePath string)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive
// terminal, or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Indexing documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Document(done, total int, sourcePath string) {
	if r.bar != nil {
		r.bar.Describe(shorten(sourcePath, 48))
		_ = r.bar.Set(done)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// shorten trims long source paths to their tail so the bar stays on one line.
func shorten(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	Out io.Writer
}

func (r *CIReporter) Start(total int) {
	fmt.Fprintf(r.Out, "Indexing %d documents\n", total)
}

func (r *CIReporter) Document(done, total int, sourcePath string) {
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", done, total, sourcePath)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.Out, "Indexing complete")
}
