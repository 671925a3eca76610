package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))
)

// Summary renders the report of a finished run
func Summary(report *entity.Report, width int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(1, 2)
	if width > 4 {
		boxStyle = boxStyle.MaxWidth(width)
	}

	lines := []string{
		titleStyle.Render("Blocklist Merger"),
		mutedStyle.Render("run " + report.RunID),
		"",
		fmt.Sprintf("Execution duration - %s | Produced %d hosts.", formatDuration(report.Elapsed), report.FinalCount),
		fmt.Sprintf("Output:            %s", report.OutputFile),
		fmt.Sprintf("Allow overrides:   %d", report.AllowCount),
		"",
		fmt.Sprintf("Combined entries:  %d", report.CombineCount),
		fmt.Sprintf("External entries:  %d", report.ExternalCount),
		fmt.Sprintf("Coverage removed:  %d in %d rounds", report.CoverageRemoved(), len(report.CoverageRounds)),
	}
	if report.ExtraRemoved > 0 {
		lines = append(lines, fmt.Sprintf("Extra removed:     %d", report.ExtraRemoved))
	}

	if len(report.Sources) > 0 {
		lines = append(lines, "", titleStyle.Render("Sources"))
		for _, src := range report.Sources {
			lines = append(lines, sourceLine(src))
		}
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func sourceLine(src entity.SourceReport) string {
	rejected := src.Lines - src.Accepted
	return fmt.Sprintf("%-8s %-16s %8d accepted %8d allowed %8d rejected  %s",
		src.Format, src.Action, src.Accepted, src.Allowed, rejected, src.URI)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := d.Seconds() - float64(hours*3600+minutes*60)

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %.0fs", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %.0fs", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", seconds)
}
