package scenes

import (
	"fmt"
	"strings"
	"time"

	"cheatguard/internal/tui/api"
	"cheatguard/internal/tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViolationsScene displays recent confirmed violations, newest first.
type ViolationsScene struct {
	client     *api.Client
	violations []api.Violation
	err        string
	width      int
	height     int
	cursor     int
	offset     int
	loading    bool
	maxRows    int
	lastUpdate time.Time
}

// violationsMsg carries updated violations
type violationsMsg struct {
	violations []api.Violation
	err        string
}

// NewViolationsScene creates a new violations scene
func NewViolationsScene(client *api.Client) *ViolationsScene {
	return &ViolationsScene{
		client:  client,
		loading: true,
		maxRows: 10,
	}
}

// Init initializes the violations scene
func (v *ViolationsScene) Init() tea.Cmd {
	return v.fetchViolations()
}

func (v *ViolationsScene) fetchViolations() tea.Cmd {
	return func() tea.Msg {
		violations, err := v.client.GetRecentViolations(100)
		if err != nil {
			return violationsMsg{err: err.Error()}
		}
		return violationsMsg{violations: violations}
	}
}

// TickCmd returns a command that ticks every interval
func (v *ViolationsScene) TickCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "violations", Time: t}
	})
}

// Update handles messages for the violations scene
func (v *ViolationsScene) Update(msg tea.Msg) (*ViolationsScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.maxRows = max(5, v.height-12)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
				if v.cursor < v.offset {
					v.offset = v.cursor
				}
			}
		case "down", "j":
			if v.cursor < len(v.violations)-1 {
				v.cursor++
				if v.cursor >= v.offset+v.maxRows {
					v.offset = v.cursor - v.maxRows + 1
				}
			}
		case "pgup":
			v.cursor = max(0, v.cursor-v.maxRows)
			v.offset = max(0, v.offset-v.maxRows)
		case "pgdown":
			v.cursor = min(len(v.violations)-1, v.cursor+v.maxRows)
			v.offset = min(max(0, len(v.violations)-v.maxRows), v.offset+v.maxRows)
		case "r":
			// Manual refresh
			v.loading = true
			return v, v.fetchViolations()
		}
		return v, nil

	case violationsMsg:
		v.loading = false
		v.violations = msg.violations
		v.err = msg.err
		v.lastUpdate = time.Now()
		if v.cursor >= len(v.violations) {
			v.cursor = max(0, len(v.violations)-1)
		}
		return v, nil

	case TickMsg:
		if msg.Scene == "violations" {
			return v, v.fetchViolations()
		}
		return v, nil
	}

	return v, nil
}

// View renders the violations list
func (v *ViolationsScene) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("  Recent Violations"))
	b.WriteString("\n\n")

	if v.loading && len(v.violations) == 0 {
		b.WriteString(styles.Muted.Render("  Loading violations..."))
		return b.String()
	}

	if v.err != "" {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %s", v.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render("  Press [r] to retry."))
		return b.String()
	}

	if len(v.violations) == 0 {
		b.WriteString(styles.Muted.Render("  No violations recorded."))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render("  Confirmed detections will appear here as game servers report events."))
		return b.String()
	}

	countText := fmt.Sprintf("  Showing %d violations", len(v.violations))
	b.WriteString(styles.Subtitle.Render(countText))
	if v.loading {
		b.WriteString(styles.Muted.Render("  (refreshing...)"))
	}
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %-10s %-16s %-12s %-10s %5s %5s  %s",
		"Time", "Player", "Check", "Category", "Level", "Ping", "Detail")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	endIdx := min(v.offset+v.maxRows, len(v.violations))
	for i, violation := range v.violations[v.offset:endIdx] {
		idx := v.offset + i
		b.WriteString(v.renderRow(violation, idx == v.cursor))
		b.WriteString("\n")
	}

	if len(v.violations) > v.maxRows {
		scrollInfo := fmt.Sprintf("\n  %d-%d of %d (↑↓ to scroll, [r] refresh)",
			v.offset+1, endIdx, len(v.violations))
		b.WriteString(styles.Muted.Render(scrollInfo))
	} else {
		b.WriteString(styles.Muted.Render("\n  [r] Refresh"))
	}

	if !v.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  |  Updated: %s", v.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (v *ViolationsScene) renderRow(violation api.Violation, selected bool) string {
	timestamp := violation.Timestamp.Format("15:04:05")
	player := truncate(violation.PlayerName, 16)
	name := truncate(violation.CheckName, 12)
	detail := truncate(violation.Detail, 40)

	row := fmt.Sprintf("  %-10s %-16s %-12s %s %5d %4dms  %s",
		timestamp, player, name,
		formatCategory(violation.Category),
		violation.Level, violation.PingMillis, detail)

	if violation.Punished {
		row += " " + styles.Punished.Render("PUNISHED")
	}

	if selected {
		return lipgloss.NewStyle().
			Background(styles.Primary).
			Foreground(styles.White).
			Render(row)
	}

	return row
}

func formatCategory(category string) string {
	padded := fmt.Sprintf("%-10s", category)
	switch category {
	case "combat":
		return styles.CategoryCombat.Render(padded)
	case "movement":
		return styles.CategoryMovement.Render(padded)
	case "player":
		return styles.CategoryPlayer.Render(padded)
	default:
		return styles.Muted.Render(padded)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
