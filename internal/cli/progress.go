package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/schollz/progressbar/v3"
)

// ProgressRenderer draws a categorization run as a progress bar. Update has
// the engine.ProgressFunc shape so it can be passed straight to a run.
type ProgressRenderer struct {
	bar  *progressbar.ProgressBar
	last engine.Progress
	mu   sync.Mutex
}

// NewProgressRenderer creates a bar for total transactions writing to w.
func NewProgressRenderer(w io.Writer, total int) *ProgressRenderer {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Categorizing transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
	return &ProgressRenderer{bar: bar}
}

// Update moves the bar to the snapshot's processed count.
func (r *ProgressRenderer) Update(p engine.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = p
	r.bar.Describe(fmt.Sprintf("[cyan][bold]Categorizing...[reset] rules %d · ai %d · skipped %d",
		p.Counts.RuleMatchCount+p.Counts.DescRuleMatchCount, p.Counts.AIMatchCount, p.Counts.SkippedCount))
	_ = r.bar.Set(p.Processed)
}

// Last returns the most recent snapshot.
func (r *ProgressRenderer) Last() engine.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Finish completes the bar.
func (r *ProgressRenderer) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bar.Finish()
}

// FormatBatchSummary renders the final counters of a run in a box.
func FormatBatchSummary(batch *model.CategorizationBatch) string {
	var b strings.Builder
	row := func(label string, value any) {
		fmt.Fprintf(&b, "%-22s %v\n", label+":", value)
	}

	row("Batch", SubtleStyle.Render(batch.ID))
	row("Transactions", batch.TransactionCount)
	row("Merchant rule matches", batch.RuleMatchCount)
	row("Description matches", batch.DescRuleMatchCount)
	row("AI matches", batch.AIMatchCount)
	row("Skipped", batch.SkippedCount)
	row("Failed", batch.FailureCount)
	row("Rules learned", batch.AutoRulesCreated)
	row("Duration", (time.Duration(batch.DurationMS) * time.Millisecond).String())

	content := strings.TrimRight(b.String(), "\n")
	if batch.ErrorMessage != "" {
		content += "\n\n" + FormatError(batch.ErrorMessage)
	}

	return RenderBox(ChartIcon+" Categorization Summary", content)
}
