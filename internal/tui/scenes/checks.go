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

// ChecksScene lists registered detectors and lets the operator toggle them.
type ChecksScene struct {
	client     *api.Client
	checks     []api.CheckInfo
	err        string
	width      int
	height     int
	cursor     int
	loading    bool
	toggling   bool
	lastUpdate time.Time
}

// checksMsg carries the detector list
type checksMsg struct {
	checks []api.CheckInfo
	err    string
}

// toggleMsg carries the result of a toggle request
type toggleMsg struct {
	info *api.CheckInfo
	err  string
}

// NewChecksScene creates a new checks scene
func NewChecksScene(client *api.Client) *ChecksScene {
	return &ChecksScene{
		client:  client,
		loading: true,
	}
}

// Init initializes the checks scene
func (c *ChecksScene) Init() tea.Cmd {
	return c.fetchChecks()
}

func (c *ChecksScene) fetchChecks() tea.Cmd {
	return func() tea.Msg {
		checks, err := c.client.GetChecks()
		if err != nil {
			return checksMsg{err: err.Error()}
		}
		return checksMsg{checks: checks}
	}
}

func (c *ChecksScene) toggleSelected() tea.Cmd {
	if c.cursor >= len(c.checks) {
		return nil
	}
	target := c.checks[c.cursor]
	return func() tea.Msg {
		info, err := c.client.SetCheckEnabled(target.Name, !target.Enabled)
		if err != nil {
			return toggleMsg{err: err.Error()}
		}
		return toggleMsg{info: info}
	}
}

// TickCmd returns a command that ticks every interval
func (c *ChecksScene) TickCmd() tea.Cmd {
	return tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "checks", Time: t}
	})
}

// Update handles messages for the checks scene
func (c *ChecksScene) Update(msg tea.Msg) (*ChecksScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		return c, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if c.cursor > 0 {
				c.cursor--
			}
		case "down", "j":
			if c.cursor < len(c.checks)-1 {
				c.cursor++
			}
		case "enter", " ":
			if !c.toggling && len(c.checks) > 0 {
				c.toggling = true
				return c, c.toggleSelected()
			}
		case "r":
			c.loading = true
			return c, c.fetchChecks()
		}
		return c, nil

	case checksMsg:
		c.loading = false
		c.checks = msg.checks
		c.err = msg.err
		c.lastUpdate = time.Now()
		if c.cursor >= len(c.checks) {
			c.cursor = max(0, len(c.checks)-1)
		}
		return c, nil

	case toggleMsg:
		c.toggling = false
		if msg.err != "" {
			c.err = msg.err
			return c, nil
		}
		c.err = ""
		for i := range c.checks {
			if c.checks[i].Name == msg.info.Name {
				c.checks[i].Enabled = msg.info.Enabled
			}
		}
		return c, nil

	case TickMsg:
		if msg.Scene == "checks" {
			return c, c.fetchChecks()
		}
		return c, nil
	}

	return c, nil
}

// View renders the detector list
func (c *ChecksScene) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("  Detection Checks"))
	b.WriteString("\n\n")

	if c.loading && len(c.checks) == 0 {
		b.WriteString(styles.Muted.Render("  Loading checks..."))
		return b.String()
	}

	if c.err != "" {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %s", c.err)))
		b.WriteString("\n\n")
	}

	if len(c.checks) == 0 {
		b.WriteString(styles.Muted.Render("  No checks registered."))
		return b.String()
	}

	header := fmt.Sprintf("  %-14s %-12s %s", "Check", "Category", "Status")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	for i, info := range c.checks {
		b.WriteString(c.renderRow(info, i == c.cursor))
		b.WriteString("\n")
	}

	b.WriteString(styles.Muted.Render("\n  [Enter/Space] Toggle  [r] Refresh"))
	if !c.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  |  Updated: %s", c.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (c *ChecksScene) renderRow(info api.CheckInfo, selected bool) string {
	var status string
	if info.Enabled {
		status = styles.StatusOK.Render("● enabled")
	} else {
		status = styles.Muted.Render("○ disabled")
	}

	row := fmt.Sprintf("  %-14s %s %s", info.Name, formatCategory(info.Category), status)

	if selected {
		return lipgloss.NewStyle().
			Background(styles.Dark).
			Foreground(styles.White).
			Render(row)
	}

	return row
}
