package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/display"
	apperrors "github.com/matzehuels/astview/pkg/errors"
	"github.com/matzehuels/astview/pkg/nav"
	"github.com/matzehuels/astview/pkg/pipeline"
	"github.com/matzehuels/astview/pkg/source"
	"github.com/matzehuels/astview/pkg/viewer"
)

// Viewer styles
var (
	buttonStyle         = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	buttonDisabledStyle = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	panelStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	helpStyle           = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle          = lipgloss.NewStyle().Foreground(colorRed)
)

// zoomStep is the factor applied by one +/- key press.
const zoomStep = 1.25

// =============================================================================
// ViewerModel - Interactive collection viewer
// =============================================================================

// loadedMsg reports the outcome of the initial load.
type loadedMsg struct {
	session *viewer.Session
	err     error
}

// ViewerModel is the bubbletea model for stepping through a collection.
// Navigation keys are ignored until the collection has loaded.
type ViewerModel struct {
	ctx    context.Context
	src    source.Source
	runner *pipeline.Runner
	opts   []viewer.Option

	Session *viewer.Session
	Err     error

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	status   string
	failed   bool
	height   int
}

// NewViewerModel creates a viewer that loads src when the program starts.
func NewViewerModel(ctx context.Context, src source.Source, runner *pipeline.Runner, opts ...viewer.Option) ViewerModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styleIconSpinner),
	)
	return ViewerModel{
		ctx:     ctx,
		src:     src,
		runner:  runner,
		opts:    opts,
		spinner: sp,
	}
}

func (m ViewerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m ViewerModel) load() tea.Msg {
	s, err := viewer.Start(m.ctx, m.src, m.runner, m.opts...)
	return loadedMsg{session: s, err: err}
}

func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, tea.Quit
		}
		m.Session = msg.session
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.Session != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, 0)
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
		}
		m.fit()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.Session == nil {
			return m, nil
		}
		switch msg.String() {
		case "left", "h", "p":
			m.step(m.Session.Previous)
			return m, nil
		case "right", "l", "n":
			m.step(m.Session.Next)
			return m, nil
		case "+", "=":
			m.zoom(zoomStep)
			return m, nil
		case "-":
			m.zoom(1 / zoomStep)
			return m, nil
		case "0":
			if _, err := m.Session.ResetView(m.ctx); err != nil {
				m.fail(err)
			} else {
				m.notify("View reset")
			}
			m.viewport.GotoTop()
			return m, nil
		case "s":
			m.save()
			return m, nil
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ViewerModel) step(move func(context.Context) (bool, error)) {
	moved, err := move(m.ctx)
	if err != nil {
		m.fail(err)
		return
	}
	if moved {
		m.notify("")
		m.refresh()
	}
}

func (m *ViewerModel) zoom(factor float64) {
	f, err := m.Session.Zoom(m.ctx, factor)
	if err != nil {
		m.fail(err)
		return
	}
	m.notify(fmt.Sprintf("Zoom %.2fx", f.View.K))
}

// save writes the current frame's SVG next to the working directory.
func (m *ViewerModel) save() {
	f := m.Session.Frame()
	path := fmt.Sprintf("%s-%d.svg", sourceBase(m.Session.Source()), f.State.Index)
	if err := os.WriteFile(path, f.SVG, 0o644); err != nil {
		m.fail(err)
		return
	}
	m.notify("Saved " + path)
}

func (m *ViewerModel) notify(msg string) {
	m.status, m.failed = msg, false
}

func (m *ViewerModel) fail(err error) {
	m.status, m.failed = apperrors.UserMessage(err), true
}

// refresh replaces the viewport content with the current display tree.
func (m *ViewerModel) refresh() {
	if m.Session == nil || !m.ready {
		return
	}
	var b strings.Builder
	_ = display.Format(&b, m.Session.Frame().Tree)
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
	m.fit()
}

// fit sizes the viewport to the space left by the header and footer.
func (m *ViewerModel) fit() {
	if m.ready {
		m.viewport.Height = max(m.height-m.chromeHeight(), 3)
	}
}

// chromeHeight is the number of lines around the viewport.
func (m ViewerModel) chromeHeight() int {
	return lipgloss.Height(m.header()) + lipgloss.Height(m.footer())
}

func (m ViewerModel) View() string {
	if m.Err != nil {
		return ""
	}
	if m.Session == nil {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), StyleDim.Render("Loading "+m.src.String()+"..."))
	}
	if !m.ready {
		return ""
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}

func (m ViewerModel) header() string {
	if m.Session == nil {
		return ""
	}
	f := m.Session.Frame()
	prev, next := buttonDisabledStyle, buttonDisabledStyle
	if f.Meta.PrevEnabled {
		prev = buttonStyle
	}
	if f.Meta.NextEnabled {
		next = buttonStyle
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Center,
		prev.Render("◀ Previous"),
		StyleValue.Render(f.Meta.Counter),
		next.Render("Next ▶"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, bar, metaPanel(f.Meta))
}

func (m ViewerModel) footer() string {
	help := helpStyle.Render("←/→ previous/next  ↑/↓ scroll  +/- zoom  0 reset  s save svg  q quit")
	switch {
	case m.status == "":
	case m.failed:
		return help + "\n" + errorStyle.Render(m.status)
	default:
		return help + "\n" + StyleSuccess.Render(m.status)
	}
	return help + "\n"
}

// metaPanel renders the metadata of the current tree.
func metaPanel(meta viewer.MetaView) string {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray)
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Rows(
			[]string{"File", meta.FilePath},
			[]string{"Lines", meta.Lines},
			[]string{"Type", meta.NodeType},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return StyleValue
		})
	return panelStyle.Render(t.Render())
}

// summaryTable lists every tree of a collection.
func summaryTable(coll ast.Collection) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, 0, coll.Len())
	for i := range coll {
		v := coll.At(i)
		m := viewer.NewMetaView(v, nav.State{Index: i, Count: coll.Len()})
		rows = append(rows, []string{
			fmt.Sprint(i),
			m.FilePath,
			m.Lines,
			m.NodeType,
			fmt.Sprint(display.Count(display.Normalize(v))),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "File", "Lines", "Type", "Nodes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0 || col == 4:
				return StyleNumber
			case col == 2:
				return StyleDim
			default:
				return StyleValue
			}
		}).
		Render()
}
