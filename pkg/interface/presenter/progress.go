package presenter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

// maxLabelWidth bounds the source column of a bar
const maxLabelWidth = 48

// Progress draws one spinner per source and one line per finished stage
type Progress struct {
	p     *mpb.Progress
	width int

	mu   sync.Mutex
	bars map[string]*mpb.Bar
}

// NewProgress renders to w. width is the terminal width in columns.
func NewProgress(w io.Writer, width int, opts ...mpb.ContainerOption) *Progress {
	opts = append([]mpb.ContainerOption{
		mpb.WithOutput(w),
		mpb.WithWidth(barWidth(width)),
	}, opts...)

	return &Progress{
		p:     mpb.New(opts...),
		width: width,
		bars:  make(map[string]*mpb.Bar),
	}
}

// SourceStarted implements application.Observer
func (pr *Progress) SourceStarted(src entity.Source) {
	bar := pr.p.AddSpinner(0,
		mpb.BarOptional(mpb.BarRemoveOnComplete(), false),
		mpb.PrependDecorators(
			decor.Name(Label(src.URI, labelWidth(pr.width)), decor.WCSyncWidthR),
		),
		mpb.AppendDecorators(
			decor.Current(decor.SizeB1024(0), "% .1f", decor.WCSyncSpace),
			decor.OnAbort(
				decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace), "done"),
				"failed",
			),
		),
	)

	pr.mu.Lock()
	pr.bars[src.URI] = bar
	pr.mu.Unlock()
}

// SourceRead implements application.Observer
func (pr *Progress) SourceRead(uri string, n int) {
	if bar := pr.bar(uri); bar != nil {
		bar.IncrBy(n)
	}
}

// SourceDone implements application.Observer
func (pr *Progress) SourceDone(report entity.SourceReport, err error) {
	bar := pr.bar(report.URI)
	if bar == nil {
		return
	}
	if err != nil {
		bar.Abort(false)
		return
	}
	bar.SetTotal(-1, true)
}

// StageDone implements application.Observer
func (pr *Progress) StageDone(stage entity.StageTiming) {
	pr.line(fmt.Sprintf("%-16s %10d  %s", stage.Stage, stage.Size, stage.Duration.Round(time.Millisecond)))
}

// RoundDone implements application.Observer
func (pr *Progress) RoundDone(round, window, removed int) {
	pr.line(fmt.Sprintf("  round %-8d window %-8d removed %d", round, window, removed))
}

// Finished implements application.Observer
func (pr *Progress) Finished(*entity.Report) {}

// Wait flushes the bars. Every started source must be done before calling it.
func (pr *Progress) Wait() {
	pr.p.Wait()
}

func (pr *Progress) bar(uri string) *mpb.Bar {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.bars[uri]
}

// line prints a finished one-line bar above the running ones
func (pr *Progress) line(text string) {
	bar := pr.p.New(1,
		mpb.NopStyle(),
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(decor.Name(text)),
	)
	bar.SetCurrent(1)
}

// Label shortens uri to at most width runes, keeping its tail
func Label(uri string, width int) string {
	r := []rune(uri)
	if width <= 3 || len(r) <= width {
		return uri
	}
	return "..." + string(r[len(r)-width+3:])
}

func labelWidth(termWidth int) int {
	w := termWidth / 2
	if w > maxLabelWidth {
		return maxLabelWidth
	}
	return w
}

func barWidth(termWidth int) int {
	w := termWidth / 4
	if w < 10 {
		return 10
	}
	return w
}
