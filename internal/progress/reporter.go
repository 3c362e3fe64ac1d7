// Package progress reports document upload progress, either as an
// interactive bar or as plain lines when running under CI.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/nsing-labs/ragbridge/internal/ragflow"
)

// UploadReporter tracks a batch of document uploads. In a terminal it
// drives a progress bar labeled with the file currently in flight; in
// CI it prints one line per file so logs stay readable.
type UploadReporter struct {
	out   io.Writer
	plain bool
	total int
	sent  int
	bar   *progressbar.ProgressBar
}

// NewUploadReporter creates a reporter for a batch of the given size.
// CI environments get line-by-line output instead of a bar.
func NewUploadReporter(total int) *UploadReporter {
	plain := os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
	r := &UploadReporter{out: os.Stderr, plain: plain, total: total}
	if !plain {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return r
}

// File records that the named file is being uploaded. A non-positive
// size means the size is unknown and is omitted from the label.
func (r *UploadReporter) File(path string, size int64) {
	label := path
	if formatted := ragflow.FormatSize(size); formatted != "" {
		label = fmt.Sprintf("%s (%s)", path, formatted)
	}
	if r.plain {
		fmt.Fprintf(r.out, "[%d/%d] %s\n", r.sent+1, r.total, label)
		return
	}
	r.bar.Describe(label)
}

// Advance marks the in-flight file as uploaded.
func (r *UploadReporter) Advance() {
	r.sent++
	if r.bar != nil {
		_ = r.bar.Set(r.sent)
	}
}

// Done closes out the batch. It is safe to call after a mid-batch
// failure; the summary then reflects the partial count.
func (r *UploadReporter) Done() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	fmt.Fprintf(r.out, "Uploaded %d of %d document(s)\n", r.sent, r.total)
}
