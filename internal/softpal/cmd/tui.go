package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"softpal/internal/analysis"
	"softpal/internal/config"
	"softpal/internal/disasm"
	"softpal/internal/softpal/styles"
	"softpal/internal/ui/colorize"
)

type viewMode int

const (
	viewSummary viewMode = iota
	viewRefs
	viewDump
)

type refItem struct {
	ref analysis.TextRef
}

func (i refItem) Title() string       { return i.ref.String() }
func (i refItem) Description() string { return "" }
func (i refItem) FilterValue() string {
	return fmt.Sprintf("%08X %s %08X", i.ref.Offset, i.ref.Kind, uint32(i.ref.Value))
}

// Custom item delegate for the references list
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(refItem)
	if !ok {
		return
	}

	var addrStyle lipgloss.Style
	indicator := " "
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	} else {
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.Offset))
	}

	kindColor := styles.MessageKey
	if i.ref.Kind == analysis.CharacterName {
		kindColor = styles.NameKind
	}
	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(kindColor)).Width(8)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.Value))

	fmt.Fprintf(w, " %s  %s  %s %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%08X", i.ref.Offset)),
		kindStyle.Render(i.ref.Kind.String()),
		valueStyle.Render(fmt.Sprintf("0x%08X", uint32(i.ref.Value))))
}

type model struct {
	viewport viewport.Model
	refsList list.Model
	dumpView viewport.Model
	spinner  spinner.Model
	mode     viewMode

	path     string
	filter   analysis.KindFilter
	style    string
	mdWidth  int
	loading  bool
	summary  *Summary
	stream   disasm.Stream
	lines    []string // highlighted dump lines
	selected int      // dump line of the last jumped-to reference, or -1
	err      error

	width  int
	height int
}

type scanDoneMsg struct {
	summary *Summary
	stream  disasm.Stream
	err     error
}

// scanCmd summarizes the file and disassembles it for the dump view.
func scanCmd(path string, filter analysis.KindFilter) tea.Cmd {
	return func() tea.Msg {
		sum, err := Summarize(path, filter)
		if err != nil {
			return scanDoneMsg{err: err}
		}

		f, err := os.Open(path)
		if err != nil {
			return scanDoneMsg{summary: sum, err: err}
		}
		defer f.Close()

		d, err := disasm.New(f)
		if err != nil {
			return scanDoneMsg{summary: sum, err: err}
		}
		// A decode error is already recorded in the summary.
		stream, _ := d.Stream()
		return scanDoneMsg{summary: sum, stream: stream}
	}
}

func NewModel(path string, filter analysis.KindFilter, cfg *config.Config) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	refsList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	refsList.SetShowStatusBar(false)
	refsList.SetFilteringEnabled(true)
	refsList.Title = "References"
	refsList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	refsList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	dvp := viewport.New()
	dvp.SetWidth(80)
	dvp.SetHeight(24)

	m := model{
		viewport: vp,
		refsList: refsList,
		dumpView: dvp,
		spinner:  s,
		mode:     viewSummary,
		path:     path,
		filter:   filter,
		style:    cfg.Style,
		mdWidth:  cfg.Width,
		loading:  true,
		selected: -1,
		width:    80,
		height:   24,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		scanCmd(m.path, m.filter),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case scanDoneMsg:
		m.loading = false
		m.summary = msg.summary
		m.err = msg.err
		m.stream = msg.stream
		m.updateRefsList()
		m.updateDump()
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.refsList.SetWidth(msg.Width)
			m.refsList.SetHeight(msg.Height - 2)
			m.dumpView.SetWidth(msg.Width)
			m.dumpView.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		if m.mode == viewRefs && m.refsList.FilterState() == list.Filtering {
			// Let the list handle keys while filtering
			if k := msg.String(); k == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.mode = viewSummary
			return m, nil
		case "r":
			if len(m.refsList.Items()) > 0 {
				m.mode = viewRefs
			}
			return m, nil
		case "d":
			if len(m.lines) > 0 {
				m.mode = viewDump
			}
			return m, nil
		case "enter":
			if m.mode == viewRefs {
				if item, ok := m.refsList.SelectedItem().(refItem); ok {
					m.jumpTo(item.ref)
				}
			}
			return m, nil
		case "tab":
			m.mode = m.nextMode(1)
			return m, nil
		case "shift+tab":
			m.mode = m.nextMode(-1)
			return m, nil
		}
	}

	switch m.mode {
	case viewRefs:
		m.refsList, cmd = m.refsList.Update(msg)
	case viewDump:
		m.dumpView, cmd = m.dumpView.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// nextMode cycles through the views that have content.
func (m model) nextMode(step int) viewMode {
	mode := m.mode
	for range 3 {
		mode = (mode + viewMode(3+step)) % 3
		switch {
		case mode == viewRefs && len(m.refsList.Items()) == 0:
		case mode == viewDump && len(m.lines) == 0:
		default:
			return mode
		}
	}
	return m.mode
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewRefs:
		content = m.refsList.View()
	case viewDump:
		content = m.dumpView.View()
	default:
		content = m.viewport.View()
	}

	var menu string
	switch m.mode {
	case viewRefs:
		menu = " Enter: show in dump • S: summary • D: dump • Tab: cycle • Q: quit "
	case viewDump:
		menu = " S: summary • R: references • Tab: cycle • Q: quit "
	default:
		if m.loading {
			menu = " Q: quit "
		} else {
			menu = " R: references • D: dump • Tab: cycle • Q: quit "
		}
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

func (m *model) updateContent() {
	var md string
	if m.summary != nil {
		md = m.summary.Markdown()
	} else {
		md = fmt.Sprintf("# Softpal\n\n```\n; %s\n```\n", m.path)
	}
	if m.err != nil {
		md += fmt.Sprintf("\n> Error: %v\n", m.err)
	}
	if m.loading {
		md += fmt.Sprintf("\n%s Scanning...\n", m.spinner.View())
	}

	width := m.width
	if m.mdWidth > 0 && m.mdWidth < width {
		width = m.mdWidth
	}
	rendered := styles.Render(md, width-2)
	m.viewport.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func (m *model) updateRefsList() {
	if m.summary == nil {
		return
	}
	items := make([]list.Item, 0, len(m.summary.Refs))
	for _, ref := range m.summary.Refs {
		items = append(items, refItem{ref: ref})
	}
	m.refsList.SetItems(items)
	m.refsList.Title = fmt.Sprintf("References (%d total)", len(items))
}

func (m *model) updateDump() {
	m.lines = nil
	if len(m.stream) == 0 {
		m.renderDump()
		return
	}
	texts := make([]string, len(m.stream))
	for i, inst := range m.stream {
		texts[i] = inst.Text
	}
	dump := colorize.NewHighlighter(m.style).Dump(strings.Join(texts, "\n"))
	m.lines = strings.Split(dump, "\n")
	m.renderDump()
}

func (m *model) renderDump() {
	if m.selected < 0 || m.selected >= len(m.lines) {
		m.dumpView.SetContent(strings.Join(m.lines, "\n"))
		return
	}
	lines := make([]string, len(m.lines))
	copy(lines, m.lines)
	mark := lipgloss.NewStyle().
		Background(lipgloss.Color(styles.Selection)).
		Foreground(lipgloss.Color(styles.Foreground))
	lines[m.selected] = mark.Render(ansi.Strip(m.lines[m.selected]))
	m.dumpView.SetContent(strings.Join(lines, "\n"))
}

// jumpTo shows the dump with the instruction containing ref highlighted.
func (m *model) jumpTo(ref analysis.TextRef) {
	idx := m.stream.Index(ref.Offset)
	if idx < 0 {
		return
	}
	m.selected = idx
	m.renderDump()
	m.dumpView.SetYOffset(max(0, idx-(m.height-2)/3))
	m.mode = viewDump
}
