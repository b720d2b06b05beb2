package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Amr-9/powfaucet/pkg/claim"
	"github.com/Amr-9/powfaucet/pkg/faucet"
	"github.com/Amr-9/powfaucet/pkg/generator"
	"github.com/Amr-9/powfaucet/pkg/generator/solana"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Console renders CLI output. Without color it prints plain text suitable
// for pipes and log files.
type Console struct {
	w     io.Writer
	color bool
}

// NewConsole writes to w, with ANSI colors when color is set.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{w: w, color: color}
}

// c returns code when colors are on.
func (c *Console) c(code string) string {
	if !c.color {
		return ""
	}
	return code
}

// ClearScreen clears the terminal
func (c *Console) ClearScreen() {
	if c.color {
		fmt.Fprint(c.w, "\033[H\033[2J")
	}
}

// PrintWelcomeBanner shows the welcome screen
func (c *Console) PrintWelcomeBanner(version string) {
	fmt.Fprintln(c.w)
	fmt.Fprint(c.w, c.c(ColorCyan+ColorBold))
	fmt.Fprintln(c.w, "  ╔══════════════════════════════════════════════════════╗")
	fmt.Fprintln(c.w, "  ║   ██████╗  ██████╗ ██╗    ██╗    ███████╗ █████╗    ║")
	fmt.Fprintln(c.w, "  ║   ██╔══██╗██╔═══██╗██║    ██║    ██╔════╝██╔══██╗   ║")
	fmt.Fprintln(c.w, "  ║   ██████╔╝██║   ██║██║ █╗ ██║    █████╗  ███████║   ║")
	fmt.Fprintln(c.w, "  ║   ██╔═══╝ ██║   ██║██║███╗██║    ██╔══╝  ██╔══██║   ║")
	fmt.Fprintln(c.w, "  ║   ██║     ╚██████╔╝╚███╔███╔╝    ██║     ██║  ██║   ║")
	fmt.Fprintln(c.w, "  ║   ╚═╝      ╚═════╝  ╚══╝╚══╝     ╚═╝     ╚═╝  ╚═╝   ║")
	fmt.Fprintln(c.w, "  ╠══════════════════════════════════════════════════════╣")
	fmt.Fprintf(c.w, "  ║%s     Proof-of-Work Faucet %s• v%-8s%s                ║\n",
		c.c(ColorYellow), c.c(ColorDim), version, c.c(ColorCyan+ColorBold))
	fmt.Fprintln(c.w, "  ╚══════════════════════════════════════════════════════╝")
	fmt.Fprint(c.w, c.c(ColorReset))
	fmt.Fprintln(c.w)
}

// PrintSearchInfo displays what is being mined.
func (c *Console) PrintSearchInfo(difficulty uint8, reward, target uint64) {
	pattern := strings.Repeat(string(solana.Sentinel), int(difficulty))
	fmt.Fprintf(c.w, "\n    %s🚀 MINING%s %s%s%s%s...%s", c.c(ColorGreen+ColorBold), c.c(ColorReset),
		c.c(ColorBold), c.c(ColorCyan), pattern, c.c(ColorDim), c.c(ColorReset))
	fmt.Fprintf(c.w, " %s(1/%s) │ %s SOL per claim │ target %s SOL%s\n\n",
		c.c(ColorDim), FormatExpected(solana.ExpectedAttempts(difficulty)),
		faucet.FormatSOL(reward), faucet.FormatSOL(target), c.c(ColorReset))
}

// Progress estimates the chance that a key has been found after attempts,
// mapped onto [0, 1).
func Progress(attempts uint64, expected float64) float64 {
	if expected <= 0 {
		expected = 1
	}
	return 1.0 - math.Pow(0.5, 2.0*float64(attempts)/expected)
}

// PrintProgress shows animated progress bar
func (c *Console) PrintProgress(stats generator.Stats, expected float64, frame int) {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	barWidth := 40
	filled := int(Progress(stats.Attempts, expected) * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(c.w, "\r    %s%s%s %s%s%s %s%s%s │ %s%s%s │ %s",
		c.c(ColorCyan), spinner, c.c(ColorReset),
		c.c(ColorDim), bar, c.c(ColorReset),
		c.c(ColorGreen+ColorBold), FormatHashRate(stats.HashRate), c.c(ColorReset),
		c.c(ColorYellow), FormatNumber(stats.Attempts), c.c(ColorReset),
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))))
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// PrintFound shows a mined keypair. savedTo is empty when the key was not kept.
func (c *Console) PrintFound(result generator.Result, savedTo string) {
	c.ClearLine()
	fmt.Fprintf(c.w, "    %s⛏  KEYPAIR MINED%s %s%s%s %s(%s attempts)%s\n",
		c.c(ColorPurple+ColorBold), c.c(ColorReset),
		c.c(ColorGreen+ColorBold), result.Address, c.c(ColorReset),
		c.c(ColorDim), FormatNumber(result.Attempts), c.c(ColorReset))
	if savedTo != "" {
		fmt.Fprintf(c.w, "       %s💾 %s%s\n", c.c(ColorDim), savedTo, c.c(ColorReset))
	}
}

// PrintClaim shows a paid claim.
func (c *Console) PrintClaim(result *claim.Result) {
	c.ClearLine()
	fmt.Fprintf(c.w, "    %s✓ Received %s SOL%s %s%s%s\n",
		c.c(ColorGreen+ColorBold), faucet.FormatSOL(result.Amount), c.c(ColorReset),
		c.c(ColorDim), result.Signature, c.c(ColorReset))
}

// PrintSummary shows the totals of a mining run.
func (c *Console) PrintSummary(claims int, received, attempts uint64, elapsed time.Duration) {
	fmt.Fprintf(c.w, "\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", c.c(ColorGreen), c.c(ColorBold), c.c(ColorReset))
	fmt.Fprintf(c.w, "    %s%s║                    ✨ MINING DONE ✨                     ║%s\n", c.c(ColorGreen), c.c(ColorBold), c.c(ColorReset))
	fmt.Fprintf(c.w, "    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", c.c(ColorGreen), c.c(ColorBold), c.c(ColorReset))

	fmt.Fprintf(c.w, "    %s◎  %s%s SOL%s   %s│   %s🧾  %s%d claims   %s│   %s📊  %s%s   %s│   %s⏱  %s%s%s\n\n",
		c.c(ColorCyan), c.c(ColorReset+ColorBold), faucet.FormatSOL(received), c.c(ColorReset),
		c.c(ColorDim),
		c.c(ColorPurple), c.c(ColorReset+ColorBold), claims,
		c.c(ColorDim),
		c.c(ColorYellow), c.c(ColorReset+ColorBold), FormatNumber(attempts),
		c.c(ColorDim),
		c.c(ColorCyan), c.c(ColorReset+ColorBold), FormatDuration(elapsed),
		c.c(ColorReset))
}

// PrintFaucet shows one faucet.
func (c *Console) PrintFaucet(f *faucet.Faucet) {
	state := c.c(ColorGreen) + "active"
	if f.Depleted() {
		state = c.c(ColorRed) + "depleted"
	}
	fmt.Fprintf(c.w, "    %sdifficulty %-2d%s reward %s SOL  balance %s%s SOL%s  %s%s\n",
		c.c(ColorBold), f.Spec.Difficulty, c.c(ColorReset),
		faucet.FormatSOL(f.Spec.Reward),
		c.c(ColorYellow), faucet.FormatSOL(f.Balance), c.c(ColorReset),
		state, c.c(ColorReset))
	fmt.Fprintf(c.w, "      %sspec   %s%s\n", c.c(ColorDim), f.Address, c.c(ColorReset))
	fmt.Fprintf(c.w, "      %ssource %s%s\n", c.c(ColorDim), f.Source, c.c(ColorReset))
}

// PrintError shows a failure.
func (c *Console) PrintError(err error) {
	fmt.Fprintf(c.w, "\n    %s✗ %v%s\n", c.c(ColorRed), err, c.c(ColorReset))
}

// PrintWarning shows a non-fatal problem.
func (c *Console) PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "    %s⚠ %s%s\n", c.c(ColorYellow), fmt.Sprintf(format, args...), c.c(ColorReset))
}

// ClearLine clears the current line
func (c *Console) ClearLine() {
	if c.color {
		fmt.Fprint(c.w, "\r                                                                                              \r")
	}
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatExpected renders an expected attempt count, switching to scientific
// notation past the uint64 range.
func FormatExpected(expected float64) string {
	if expected >= math.MaxUint64 {
		return fmt.Sprintf("%.3g", expected)
	}
	return FormatNumber(uint64(expected))
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
