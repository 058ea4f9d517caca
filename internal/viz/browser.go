package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/flowpod/internal/config"
	"github.com/san-kum/flowpod/internal/pod"
	"github.com/san-kum/flowpod/internal/render"
	"github.com/san-kum/flowpod/internal/storage"
)

// Page is one field shown by the browser.
type Page struct {
	Title      string
	Data       mat.Matrix
	Eigenvalue float64
	// Energy is nil for the reconstruction page.
	Energy *pod.EnergyFraction
}

// PagesFromRun lists the reconstruction followed by every stored mode, scaled
// by its coefficient when the run plotted scaled modes.
func PagesFromRun(meta *storage.RunMetadata, modes *storage.StoredModes) ([]Page, error) {
	recon, err := modes.Reconstruction()
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Reconstructed (snapshot %d)", meta.Params.Snapshot)
	if meta.Params.Coefficients == config.CoefficientsDiagonal {
		title = "Reconstructed"
	}
	pages := []Page{{Title: title, Data: recon}}

	for i := 0; i < modes.Len(); i++ {
		f, err := modes.ModeField(meta, i)
		if err != nil {
			return nil, err
		}
		p := Page{Title: fmt.Sprintf("Mode %d", i+1), Data: f}
		if i < len(meta.Eigenvalues) {
			p.Eigenvalue = meta.Eigenvalues[i]
		}
		if i < len(meta.Energy) {
			e := meta.Energy[i]
			p.Energy = &e
		}
		pages = append(pages, p)
	}
	return pages, nil
}

type Browser struct {
	runID         string
	pages         []Page
	index         int
	theme         int
	width, height int
}

// NewBrowser starts on the first page with the named theme; unknown names get
// the default theme.
func NewBrowser(runID string, pages []Page, theme string) Browser {
	return Browser{runID: runID, pages: pages, theme: themeIndex(theme), width: 80, height: 24}
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "right", "l", "n", " ":
			if b.index < len(b.pages)-1 {
				b.index++
			}
		case "left", "h", "p":
			if b.index > 0 {
				b.index--
			}
		case "g", "home":
			b.index = 0
		case "G", "end":
			b.index = max(len(b.pages)-1, 0)
		case "t":
			b.theme = (b.theme + 1) % len(Themes)
		}
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	}
	return b, nil
}

func (b Browser) spectrum() []float64 {
	var vals []float64
	for _, p := range b.pages {
		if p.Energy != nil {
			vals = append(vals, p.Eigenvalue)
		}
	}
	return vals
}

func (b Browser) Index() int { return b.index }

func (b Browser) Theme() Theme { return Themes[b.theme] }

func (b Browser) View() string {
	th := b.Theme()
	title := lipgloss.NewStyle().Foreground(th.Primary).Bold(true)
	label := lipgloss.NewStyle().Foreground(th.Muted)
	value := lipgloss.NewStyle().Foreground(th.Accent).Bold(true)
	key := lipgloss.NewStyle().Foreground(th.Secondary).Bold(true)

	var s strings.Builder
	s.WriteString("\n  " + title.Render("FLOWPOD") + "  " + label.Render(b.runID) + "\n\n")

	if len(b.pages) == 0 {
		s.WriteString("  " + lipgloss.NewStyle().Foreground(th.Error).Render("no modes stored") + "\n")
		return s.String()
	}

	p := b.pages[b.index]
	s.WriteString("  " + title.Render(p.Title) + label.Render(fmt.Sprintf("  [%d/%d]", b.index+1, len(b.pages))))
	if p.Energy != nil {
		s.WriteString(label.Render("  λ ") + value.Render(fmt.Sprintf("%.4g", p.Eigenvalue)))
		s.WriteString(label.Render("  energy ") + value.Render(fmt.Sprintf("%.2f%%", 100*p.Energy.Fraction)))
	}
	s.WriteString("\n")
	if p.Energy != nil {
		s.WriteString("  " + label.Render("cumulative ") + EnergyBar(th, p.Energy.Cumulative, 20) +
			value.Render(fmt.Sprintf(" %.2f%%", 100*p.Energy.Cumulative)))
		s.WriteString("  " + label.Render("spectrum ") + Sparkline(th, b.spectrum(), b.index-1))
	}
	s.WriteString("\n\n")

	hm := render.Heatmap(p.Data, max(b.width-4, 1), max(b.height-11, 1))
	for _, line := range strings.Split(hm, "\n") {
		s.WriteString("  " + line + "\n")
	}

	s.WriteString("\n  " + separator(th, b.width-4) + "\n")
	s.WriteString("  " + key.Render("h/l") + label.Render(" page  ") +
		key.Render("t") + label.Render(" theme ("+th.Name+")  ") +
		key.Render("q") + label.Render(" quit") + "\n")
	return s.String()
}

// Run opens the browser full screen and blocks until the user quits.
func Run(runID string, pages []Page, theme string) error {
	_, err := tea.NewProgram(NewBrowser(runID, pages, theme), tea.WithAltScreen()).Run()
	return err
}
