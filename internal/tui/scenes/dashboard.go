// Package scenes provides the TUI scenes for the cheatguard console.
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

// DashboardScene displays the pipeline overview and counters.
type DashboardScene struct {
	client     *api.Client
	health     *api.HealthResponse
	stats      *api.Stats
	err        error
	width      int
	height     int
	lastUpdate time.Time
	loading    bool
}

// statsMsg carries updated stats
type statsMsg struct {
	health *api.HealthResponse
	stats  *api.Stats
	err    error
}

// NewDashboardScene creates a new dashboard scene
func NewDashboardScene(client *api.Client) *DashboardScene {
	return &DashboardScene{
		client:  client,
		loading: true,
	}
}

// Init initializes the dashboard scene - fetches initial data
func (d *DashboardScene) Init() tea.Cmd {
	return d.fetchStats()
}

func (d *DashboardScene) fetchStats() tea.Cmd {
	return func() tea.Msg {
		health, err := d.client.GetHealth()
		if err != nil {
			return statsMsg{err: err}
		}
		stats, err := d.client.GetStats()
		return statsMsg{health: health, stats: stats, err: err}
	}
}

// TickCmd returns a command that ticks every interval
// IMPORTANT: This is returned by the parent model only when this scene is active
func (d *DashboardScene) TickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "dashboard", Time: t}
	})
}

// TickMsg is sent on each tick - exported for use by parent model
type TickMsg struct {
	Scene string
	Time  time.Time
}

// Update handles messages for the dashboard
func (d *DashboardScene) Update(msg tea.Msg) (*DashboardScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case statsMsg:
		d.loading = false
		d.health = msg.health
		d.stats = msg.stats
		d.err = msg.err
		d.lastUpdate = time.Now()
		return d, nil

	case TickMsg:
		// Only respond to our own ticks
		if msg.Scene == "dashboard" {
			return d, d.fetchStats()
		}
		return d, nil
	}

	return d, nil
}

// View renders the dashboard
func (d *DashboardScene) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("  Cheatguard Dashboard"))
	b.WriteString("\n\n")

	if d.loading {
		b.WriteString(styles.Muted.Render("Loading..."))
		return b.String()
	}

	if d.err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %v", d.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render("  Make sure the cheatguard backend is running."))
		return b.String()
	}

	var statusText string
	switch d.health.Status {
	case "healthy":
		statusText = styles.StatusOK.Render("● HEALTHY")
	case "degraded":
		statusText = styles.StatusWarning.Render("● DEGRADED")
	default:
		statusText = styles.StatusError.Render("● " + strings.ToUpper(d.health.Status))
	}
	b.WriteString(fmt.Sprintf("  Status: %s\n\n", statusText))

	cards := []string{
		d.renderMetricCard("Players Online", fmt.Sprintf("%d", d.stats.Players.Online)),
		d.renderMetricCard("Events", formatNumber(int64(d.stats.Engine.Processed))),
		d.renderMetricCard("Queue", fmt.Sprintf("%d/%d", d.stats.Queue.Depth, d.stats.Queue.Capacity)),
		d.renderMetricCard("Violations", formatNumber(int64(d.stats.Registry.Violations))),
		d.renderMetricCard("Punishments", formatNumber(int64(d.stats.Registry.Punishments))),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n\n")

	b.WriteString(styles.Subtitle.Render("  Pipeline"))
	b.WriteString("\n")
	b.WriteString(d.renderPipeline())
	b.WriteString("\n")

	if !d.lastUpdate.IsZero() {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  Last updated: %s", d.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (d *DashboardScene) renderMetricCard(label, value string) string {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.MutedColor).
		Padding(0, 2).
		Width(18).
		Align(lipgloss.Center)

	content := fmt.Sprintf("%s\n%s",
		styles.MetricValue.Render(value),
		styles.MetricLabel.Render(label),
	)

	return card.Render(content)
}

func (d *DashboardScene) renderPipeline() string {
	type stage struct {
		name   string
		detail string
		bad    bool
	}
	stages := []stage{
		{"Queue", fmt.Sprintf("pushed %s, popped %s, dropped %d",
			formatNumber(int64(d.stats.Queue.Pushed)),
			formatNumber(int64(d.stats.Queue.Popped)),
			d.stats.Queue.Dropped), d.stats.Queue.Dropped > 0},
		{"Engine", fmt.Sprintf("processed %s, panics %d",
			formatNumber(int64(d.stats.Engine.Processed)),
			d.stats.Engine.Panics), d.stats.Engine.Panics > 0},
		{"Dispatcher", fmt.Sprintf("dispatched %d, failed %d",
			d.stats.Dispatcher.Dispatched,
			d.stats.Dispatcher.Failed), d.stats.Dispatcher.Failed > 0},
		{"Alerting", fmt.Sprintf("delivered %d, failures %d",
			d.stats.Alerting.Delivered,
			d.stats.Alerting.Failures), d.stats.Alerting.Failures > 0},
	}

	var rows []string
	for _, s := range stages {
		dot := styles.StatusOK.Render("●")
		if s.bad {
			dot = styles.StatusWarning.Render("●")
		}
		rows = append(rows, fmt.Sprintf("  %s %-12s %s", dot, s.name, styles.Muted.Render(s.detail)))
	}

	return strings.Join(rows, "\n")
}

func formatNumber(n int64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
