package ui

import (
	"fmt"
	"strings"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// PrintHeader prints a section header
func PrintHeader(title string) {
	line := strings.Repeat("=", len(title)+4)
	fmt.Printf("\n%s%s%s\n", colorBold+colorBlue, line, colorReset)
	fmt.Printf("%s  %s  %s\n", colorBold+colorBlue, title, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBold+colorBlue, line, colorReset)
}

// PrintStep prints a step in progress
func PrintStep(message string) {
	fmt.Printf("%s▶%s %s\n", colorCyan, colorReset, message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

// PrintInfo prints an informational message
func PrintInfo(message string) {
	fmt.Printf("  %s\n", message)
}

// Finding is an inducing combination as shown to the user.
type Finding struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Exception   string `json:"exception,omitempty"`
}

// PrintFinding prints an inducing combination with formatting
func PrintFinding(f Finding, rank int) {
	label := "FAILURE-INDUCING"
	color := colorRed
	if f.Kind == "EXCEPTION_INDUCING" {
		label = "EXCEPTION-INDUCING"
		color = colorYellow
	}

	fmt.Printf("\n%s%d. %s%s\n", colorBold+color, rank, label, colorReset)
	fmt.Printf("  Combination: %s%s%s\n", colorYellow, f.Description, colorReset)
	fmt.Printf("  Key:         %s%s%s\n", colorGray, f.Key, colorReset)
	if f.Exception != "" {
		fmt.Printf("  Exception:   %s\n", f.Exception)
	}
}

// PrintSummary prints a session summary
func PrintSummary(executions, cacheHits, rounds int, elapsed time.Duration, status string) {
	fmt.Printf("\n%sStatus:%s %s\n", colorBold, colorReset, status)
	fmt.Printf("Executions: %d (%d answered from cache)\n", executions, cacheHits)
	fmt.Printf("Identification rounds: %d\n", rounds)
	if elapsed > 0 {
		fmt.Printf("Elapsed:  %s\n", formatDuration(elapsed))
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// PrintTable prints a simple table
func PrintTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Printf("%s%-*s%s  ", colorBold, widths[i], h, colorReset)
	}
	fmt.Println()

	for _, w := range widths {
		fmt.Print(strings.Repeat("-", w) + "  ")
	}
	fmt.Println()

	for _, row := range rows {
		for i, cell := range row {
			fmt.Printf("%-*s  ", widths[i], cell)
		}
		fmt.Println()
	}
}

// Confirm prompts for yes/no confirmation
func Confirm(message string) bool {
	fmt.Printf("%s%s (y/n): %s", colorPurple, message, colorReset)
	var response string
	fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// FormatDuration formats a duration for display (exported version)
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
