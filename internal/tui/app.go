package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/mhartman/chirpwidget/internal/format"
	"github.com/mhartman/chirpwidget/internal/timeline"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Padding(0, 1)
)

type feedLoadedMsg *timeline.FeedResult

// App is the interactive viewer over the account feed.
type App struct {
	svc             *timeline.Service
	viewport        viewport.Model
	result          *timeline.FeedResult
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	width           int
	height          int
	loading         bool
}

func NewApp(svc *timeline.Service) *App {
	return &App{
		svc:      svc,
		viewport: viewport.New(0, 0),
		loading:  true,
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadFeed(false)
}

func (a *App) loadFeed(force bool) tea.Cmd {
	return func() tea.Msg {
		a.svc.SetForceRefresh(force)
		defer a.svc.SetForceRefresh(false)
		return feedLoadedMsg(a.svc.Feed())
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 4
		if a.viewport.Height < 1 {
			a.viewport.Height = 1
		}
		a.setContent()
		return a, nil

	case feedLoadedMsg:
		a.result = msg
		a.loading = false
		a.setContent()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "r":
			a.loading = true
			return a, a.loadFeed(true)
		}
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	header := headerStyle.Render("› chirpwidget")
	if a.result != nil && a.result.Handle != "" {
		header = headerStyle.Render("› @" + a.result.Handle)
	}

	status := statusStyle.Render("r: refresh  q: quit")
	if a.loading {
		status = statusStyle.Render("fetching feed...")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, a.viewport.View(), status)
}

func (a *App) setContent() {
	if a.result == nil || a.width == 0 {
		return
	}

	if a.result.Err.IsSet() {
		a.viewport.SetContent(errorStyle.Render(string(a.result.Err)))
		return
	}

	rendered, err := a.renderMarkdown(a.feedMarkdown())
	if err != nil {
		a.viewport.SetContent(errorStyle.Render(fmt.Sprintf("rendering feed: %v", err)))
		return
	}
	a.viewport.SetContent(rendered)
}

func (a *App) feedMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[@%s](%s)\n\n", a.result.Handle, a.result.Link)
	for _, post := range a.result.Posts {
		fmt.Fprintf(&b, "%s\n\n*%s*\n\n", format.AnchorsToMarkdown(post.Description), post.DisplayTime)
	}

	return b.String()
}

func (a *App) renderMarkdown(md string) (string, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}

	if a.glamourRenderer == nil || a.rendererWidth != wordWrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return "", err
		}
		a.glamourRenderer = renderer
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer.Render(md)
}
