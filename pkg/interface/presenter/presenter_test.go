package presenter

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/WangYihang/Blocklist-Merger/pkg/application"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

var _ application.Observer = (*Progress)(nil)

func TestLabel(t *testing.T) {
	assert.Equal(t, "short", Label("short", 10))
	assert.Equal(t, "...ts.txt", Label("https://example.com/lists.txt", 9))
	assert.Len(t, []rune(Label("https://example.com/some/long/path/hosts", 20)), 20)
	assert.Equal(t, "abcdef", Label("abcdef", 2))
}

func TestProgressCompletes(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 80)

	ok := entity.Source{URI: "https://example.com/hosts"}
	failed := entity.Source{URI: "https://example.com/broken"}

	p.SourceStarted(ok)
	p.SourceStarted(failed)
	p.SourceRead(ok.URI, 2048)
	p.SourceRead("unknown", 1)
	p.SourceDone(entity.SourceReport{URI: ok.URI}, nil)
	p.SourceDone(entity.SourceReport{URI: failed.URI}, errors.New("boom"))
	p.StageDone(entity.StageTiming{Stage: "sort", Duration: time.Millisecond, Size: 3})
	p.RoundDone(1, 250, 2)
	p.Finished(&entity.Report{})

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("progress did not finish")
	}
}

func TestSummary(t *testing.T) {
	report := &entity.Report{
		RunID:          "run-1",
		CombineCount:   10,
		ExternalCount:  4,
		AllowCount:     1,
		CoverageRounds: []int{3, 1},
		ExtraRemoved:   2,
		FinalCount:     5,
		OutputFile:     "filter.txt",
		Elapsed:        1500 * time.Millisecond,
		Sources: []entity.SourceReport{
			{URI: "hosts.txt", Format: entity.FormatHosts, Action: entity.ActionCombine, Lines: 12, Accepted: 10},
		},
	}

	out := Summary(report, 0)
	assert.Contains(t, out, "Execution duration - 1.50s | Produced 5 hosts.")
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "Coverage removed:  4 in 2 rounds")
	assert.Contains(t, out, "Extra removed:     2")
	assert.Contains(t, out, "hosts.txt")
	assert.Contains(t, out, "2 rejected")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.25s", formatDuration(250*time.Millisecond))
	assert.Equal(t, "2m 5s", formatDuration(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h 1m 1s", formatDuration(time.Hour+time.Minute+time.Second))
}
