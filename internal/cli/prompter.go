package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/eivindbakke/merkelapp/internal/engine"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Prompter implements the interactive CLI review loop for photo analysis.
type Prompter struct {
	writer       io.Writer
	reader       *bufio.Reader
	progressBar  *progressbar.ProgressBar
	recentLabels []string
	totalPhotos  int
	mu           sync.Mutex
}

// NewCLIPrompter creates a new CLI prompter with the given reader and writer.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// ReviewPhoto presents one photo's detection suggestions and asks the user
// what to do with them.
func (p *Prompter) ReviewPhoto(ctx context.Context, pending engine.PendingReview) (engine.ReviewDecision, error) {
	select {
	case <-ctx.Done():
		return engine.ReviewDecision{}, ctx.Err()
	default:
	}

	p.updateProgress()

	content := p.formatPendingReview(pending)
	if _, err := fmt.Fprintln(p.writer, RenderBox("Photo Review", content)); err != nil {
		return engine.ReviewDecision{}, fmt.Errorf("failed to write review box: %w", err)
	}

	options := fmt.Sprintf("  [A] Apply all %d suggested labels\n", len(pending.Suggestions)) +
		"  [E] Edit the label list\n" +
		"  [S] Skip this photo\n" +
		"  [Q] Quit analysis\n"
	if _, err := fmt.Fprintln(p.writer, options); err != nil {
		return engine.ReviewDecision{}, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [A/E/S/Q]", []string{"a", "e", "s", "q"})
	if err != nil {
		return engine.ReviewDecision{}, err
	}

	switch choice {
	case "a":
		labels := make([]string, len(pending.Suggestions))
		for i, s := range pending.Suggestions {
			labels[i] = s.Label
		}
		p.trackLabels(labels)
		if _, err := fmt.Fprintln(p.writer, FormatSuccess(fmt.Sprintf("Applied %d labels", len(labels)))); err != nil {
			slog.Warn("Failed to write accept confirmation", "error", err)
		}
		return engine.ReviewDecision{Labels: labels}, nil
	case "e":
		labels, promptErr := p.promptLabels(ctx)
		if promptErr != nil {
			return engine.ReviewDecision{}, promptErr
		}
		p.trackLabels(labels)
		if _, err := fmt.Fprintln(p.writer, FormatSuccess(fmt.Sprintf("Applied %d labels", len(labels)))); err != nil {
			slog.Warn("Failed to write edit confirmation", "error", err)
		}
		return engine.ReviewDecision{Labels: labels}, nil
	case "s":
		if _, err := fmt.Fprintln(p.writer, FormatWarning("Skipped; the photo stays queued for the next run")); err != nil {
			slog.Warn("Failed to write skip message", "error", err)
		}
		return engine.ReviewDecision{Skip: true}, nil
	case "q":
		if _, err := fmt.Fprintln(p.writer, FormatInfo("Stopping analysis")); err != nil {
			slog.Warn("Failed to write quit message", "error", err)
		}
		return engine.ReviewDecision{Quit: true}, nil
	}

	return engine.ReviewDecision{}, fmt.Errorf("unexpected choice: %s", choice)
}

// SetTotalPhotos sets the number of photos in the batch and starts the
// progress bar.
func (p *Prompter) SetTotalPhotos(total int) {
	p.totalPhotos = total
	p.initProgressBar()
}

// ShowCompletion displays the analysis summary to the user.
func (p *Prompter) ShowCompletion(stats *service.AnalysisStats) {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline", "error", err)
		}
	}

	summary := fmt.Sprintf("%s Analysis complete!\n\n", PackageIcon) +
		fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Photos in batch: %d\n", stats.TotalPhotos) +
		fmt.Sprintf("  • Analyzed: %d\n", stats.Analyzed) +
		fmt.Sprintf("  • Auto-labeled: %d\n", stats.AutoLabeled) +
		fmt.Sprintf("  • Confirmed by you: %d\n", stats.UserConfirmed) +
		fmt.Sprintf("  • Skipped: %d\n", stats.SkippedPhotos) +
		fmt.Sprintf("  • Failed: %d\n", stats.FailedPhotos) +
		fmt.Sprintf("  • Time taken: %s\n", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Analysis Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (p *Prompter) initProgressBar() {
	p.progressBar = progressbar.NewOptions(p.totalPhotos,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Analyzing photos...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (p *Prompter) updateProgress() {
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *Prompter) formatPendingReview(pending engine.PendingReview) string {
	name := filepath.Base(pending.Photo.AssetID)
	header := TitleStyle.Render(fmt.Sprintf("Photo %d of %d: %s", pending.Position, pending.Total, name))

	details := fmt.Sprintf("%s Details:\n", InfoIcon) +
		fmt.Sprintf("  Taken: %s\n", pending.Photo.CreatedAt.Format("Jan 2, 2006 15:04"))

	if pending.Detection != nil && pending.Detection.Description != "" {
		details += fmt.Sprintf("  %s %s\n", RobotIcon, pending.Detection.Description)
	}

	suggestions := fmt.Sprintf("\n%s Suggested labels:\n", LabelIcon)
	for _, s := range pending.Suggestions {
		line := fmt.Sprintf("  • %s (%.0f%%)", s.Label, s.Confidence*100)
		if !s.InVocab {
			line += " " + WarningStyle.Render("(not in vocabulary)")
		}
		suggestions += line + "\n"
	}

	return header + "\n\n" + details + suggestions
}

func (p *Prompter) trackLabels(labels []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recentLabels = append(labels, p.recentLabels...)
	if len(p.recentLabels) > 10 {
		p.recentLabels = p.recentLabels[:10]
	}
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(strings.TrimSpace(input))

		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

// promptLabels reads a comma-separated label list. Labels may contain spaces
// ("pakke i postkasse"), so commas are the only separator.
func (p *Prompter) promptLabels(ctx context.Context) ([]string, error) {
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return nil, fmt.Errorf("failed to write newline: %w", err)
	}

	p.mu.Lock()
	recent := make([]string, len(p.recentLabels))
	copy(recent, p.recentLabels)
	p.mu.Unlock()

	if len(recent) > 0 {
		if _, err := fmt.Fprintln(p.writer, FormatInfo("Recent labels:")); err != nil {
			return nil, fmt.Errorf("failed to write recent labels header: %w", err)
		}
		seen := make(map[string]bool)
		for _, label := range recent {
			if !seen[label] {
				if _, err := fmt.Fprintf(p.writer, "  • %s\n", label); err != nil {
					slog.Warn("Failed to write recent label", "error", err)
				}
				seen[label] = true
			}
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			return nil, fmt.Errorf("failed to write newline after labels: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt("Labels (comma-separated)")); err != nil {
			return nil, fmt.Errorf("failed to write label prompt: %w", err)
		}

		input, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("input terminated")
			}
			return nil, err
		}

		labels := splitLabels(input)
		if len(labels) == 0 {
			if _, err := fmt.Fprintln(p.writer, FormatError("Label list cannot be empty. Use [S] to skip instead.")); err != nil {
				slog.Warn("Failed to write empty label error", "error", err)
			}
			continue
		}

		return labels, nil
	}
}

// splitLabels parses a comma-separated label list, dropping empty entries.
func splitLabels(input string) []string {
	parts := strings.Split(input, ",")
	labels := make([]string, 0, len(parts))
	for _, part := range parts {
		if label := strings.TrimSpace(part); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// Ensure Prompter implements the engine.Prompter interface.
var _ engine.Prompter = (*Prompter)(nil)
