package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nconklindev/sheet2csv/internal/batch"
	"github.com/nconklindev/sheet2csv/internal/config"
	"github.com/nconklindev/sheet2csv/internal/converter"
	"github.com/nconklindev/sheet2csv/internal/naming"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateFilePicker state = iota
	stateFormatSelection
	stateDateEntry
	stateProcessing
	stateComplete
)

const sameNameOption = "Same name (.csv)"

type Model struct {
	state        state
	filepicker   filepicker.Model
	files        []string
	formats      []config.OutputFormat
	formatCursor int // 0 is the same-name option, i > 0 is formats[i-1]
	dateInput    textinput.Model
	dateErr      string
	opts         batch.Options
	summary      *batch.Summary
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan *batch.Summary
}

type batchCompleteMsg struct {
	summary *batch.Summary
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel builds the UI. Output formats come from cfg; opts carries the
// normalizer and read settings used for every conversion.
func InitialModel(cfg *config.Config, opts batch.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = converter.SupportedExtensions
	fp.CurrentDirectory, _ = os.Getwd()

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9CCA"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FD1AE"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FD1AE"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9CCA")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	ti := textinput.New()
	ti.Placeholder = naming.EntryLayout
	ti.CharLimit = len(naming.EntryLayout)
	ti.SetValue(time.Now().Format(naming.EntryLayout))

	var formats []config.OutputFormat
	if cfg != nil {
		formats = cfg.OutputFormats
	}

	return Model{
		state:      stateFilePicker,
		filepicker: fp,
		formats:    formats,
		dateInput:  ti,
		opts:       opts,
		progress:   progress.New(progress.WithGradient("#2E9CCA", "#7FD1AE")),
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title, selected files and help text.
		height := msg.Height - 16
		if height < 5 {
			height = 5 // Minimum height
		}

		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "x":
				if len(m.files) > 0 {
					m.files = m.files[:len(m.files)-1]
				}
				return m, nil
			case "tab":
				if len(m.files) > 0 {
					m.state = stateFormatSelection
				}
				return m, nil
			}

		case stateFormatSelection:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "esc":
				m.state = stateFilePicker
			case "up", "k":
				if m.formatCursor > 0 {
					m.formatCursor--
				}
			case "down", "j":
				if m.formatCursor < len(m.formats) {
					m.formatCursor++
				}
			case "enter":
				if m.formatCursor == 0 {
					m.opts.Format = nil
					return m.startBatch()
				}
				m.state = stateDateEntry
				m.dateErr = ""
				return m, m.dateInput.Focus()
			}
			return m, nil

		case stateDateEntry:
			switch msg.String() {
			case "esc":
				m.dateInput.Blur()
				m.state = stateFormatSelection
				return m, nil
			case "enter":
				date, err := naming.ParseDate(m.dateInput.Value())
				if err != nil {
					m.dateErr = err.Error()
					return m, nil
				}
				m.dateInput.Blur()
				format := m.formats[m.formatCursor-1]
				m.opts.Format = &format
				m.opts.Date = date
				return m.startBatch()
			}
			var cmd tea.Cmd
			m.dateInput, cmd = m.dateInput.Update(msg)
			return m, cmd

		case stateComplete:
			switch msg.String() {
			case "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case batchCompleteMsg:
		m.summary = msg.summary
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	// Handle filepicker updates
	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.addFile(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m *Model) addFile(path string) {
	for _, f := range m.files {
		if f == path {
			return
		}
	}
	m.files = append(m.files, path)
}

func (m Model) startBatch() (Model, tea.Cmd) {
	m.state = stateProcessing
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan *batch.Summary, 1)

	// Capture for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan
	files := append([]string(nil), m.files...)
	opts := m.opts

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				resultChan <- batch.Run(context.Background(), files, opts, progressChan)

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan *batch.Summary) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			s, ok := <-resultChan
			if ok {
				return batchCompleteMsg{summary: s}
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateFormatSelection:
		return m.viewFormatSelection()
	case stateDateEntry:
		return m.viewDateEntry()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ sheet2csv - Spreadsheet to CSV Converter"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select one or more XLSX or CSV files to convert"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")

	if len(m.files) > 0 {
		s.WriteString(CheckedStyle.Render(fmt.Sprintf("Selected files (%d):", len(m.files))))
		s.WriteString("\n")
		for _, f := range m.files {
			s.WriteString(fmt.Sprintf("  • %s\n", m.truncate(f)))
		}
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("enter: add file • x: remove last • tab: continue • q: quit"))

	return s.String()
}

func (m Model) viewFormatSelection() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Select Output Format"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d file(s) selected", len(m.files))))
	s.WriteString("\n\n")

	options := append([]string{sameNameOption}, m.formatNames()...)
	for i, name := range options {
		cursor := " "
		if m.formatCursor == i {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %s", cursor, name)
		if i > 0 {
			line += SubtitleStyle.Render(fmt.Sprintf("  %s_YYYYMMDD.csv", m.formats[i-1].FileName))
		}

		if m.formatCursor == i {
			line = SelectedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}

		s.WriteString(line)
		s.WriteString("\n")
	}

	if len(m.formats) == 0 {
		s.WriteString("\n")
		s.WriteString(SubtitleStyle.Render("No output formats configured"))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • enter: choose • esc: back • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewDateEntry() string {
	var s strings.Builder

	format := m.formats[m.formatCursor-1]
	s.WriteString(TitleStyle.Render("▦ Select Date"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Format: %s", format.DisplayName)))
	s.WriteString("\n\n")
	s.WriteString(m.dateInput.View())
	s.WriteString("\n")

	if m.dateErr != "" {
		s.WriteString("\n")
		s.WriteString(ErrorStyle.Render(m.dateErr))
		s.WriteString("\n")
	} else if date, err := naming.ParseDate(m.dateInput.Value()); err == nil {
		s.WriteString("\n")
		s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Output: %s_%s.csv", format.FileName, naming.DateStamp(date))))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("enter: convert • esc: back • ctrl+c: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Processing..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Converting %d file(s) to CSV...", len(m.files)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	sum := m.summary
	if sum.Failed == 0 {
		s.WriteString(TitleStyle.Render("✓ Conversion Complete!"))
	} else {
		s.WriteString(ErrorStyle.Render("Conversion finished with errors"))
	}
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Succeeded: %d\n", sum.Succeeded))
	s.WriteString(fmt.Sprintf("Failed:    %d\n", sum.Failed))
	s.WriteString("\n")

	for _, r := range sum.Results {
		if r.Err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("✗ %s", filepath.Base(r.InputFile))))
			s.WriteString("\n  ")
			s.WriteString(r.Err.Error())
			s.WriteString("\n")
			continue
		}
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("✓ %s", m.truncate(r.OutputFile))))
		s.WriteString(fmt.Sprintf("  (%d rows", r.Result.RowsProcessed))
		if r.Result.CellMisses > 0 {
			s.WriteString(fmt.Sprintf(", %d unrecognized dates", r.Result.CellMisses))
		}
		s.WriteString(")\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press enter to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) formatNames() []string {
	names := make([]string, len(m.formats))
	for i, f := range m.formats {
		names[i] = f.DisplayName
	}
	return names
}

// truncate shortens long paths to fit the window.
func (m Model) truncate(path string) string {
	maxPathLen := m.width - 20 // Leave room for padding and borders
	if maxPathLen < 30 {
		maxPathLen = 30
	}
	if len(path) > maxPathLen {
		return "..." + path[len(path)-maxPathLen+3:]
	}
	return path
}
