// Package statsui provides the Bubble Tea study dashboard.
package statsui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studytrack/internal/app"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
	"github.com/verte-zerg/studytrack/internal/target"
)

const (
	tabOverview = iota
	tabSubjects
	tabTrend
	tabTargets
)

// Entry form fields, in tab order.
const (
	fieldDate = iota
	fieldSubject
	fieldHours
	fieldQuestions
	fieldPerformance
	fieldMotivation
	fieldTopics
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea dashboard.
type Model struct {
	tracker *app.Tracker
	state   app.State
	now     func() time.Time

	report      stats.Report
	progress    []target.SubjectProgress
	trendWindow int
	daysLeft    *int

	errMsg    string
	statusMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	subjects  table.Model

	width  int
	height int

	formMode   bool
	formInputs []textinput.Model
	formIndex  int
	formError  string
}

// NewModel constructs the dashboard over an already loaded state.
func NewModel(tracker *app.Tracker, state app.State, trendWindow int, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	if trendWindow < 1 {
		trendWindow = 1
	}
	m := &Model{
		tracker:     tracker,
		state:       state,
		now:         now,
		trendWindow: trendWindow,
		tabs:        []string{"Overview", "Subjects", "Trend", "Targets"},
	}
	m.initInputs()
	m.initViewports()
	m.subjects = buildSubjectTable(nil, 0, 1)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.formMode {
			return m.updateForm(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.activeTab == tabSubjects {
			m.subjects.Focus()
		} else {
			m.subjects.Blur()
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.trendWindow++
			m.renderTabContents()
			return m, nil
		case "-":
			if m.trendWindow > 1 {
				m.trendWindow--
			}
			m.renderTabContents()
			return m, nil
		case "a":
			return m.startForm()
		case "g", "home":
			if m.activeTab == tabSubjects {
				m.subjects.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSubjects {
				m.subjects.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabSubjects {
				var cmd tea.Cmd
				m.subjects, cmd = m.subjects.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.formMode {
		return fitLines(m.renderForm(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// State returns the state as last saved by the dashboard.
func (m *Model) State() app.State {
	return m.state
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.formInputs = []textinput.Model{
		newInput("Date (YYYY-MM-DD): "),
		newInput("Subject: "),
		newInput("Hours: "),
		newInput("Questions: "),
		newInput("Performance (1-10): "),
		newInput("Motivation (1-10): "),
		newInput("Topics: "),
	}
	m.formInputs[fieldSubject].Placeholder = "Physics, Chemistry, Botany, Zoology"
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" || m.statusMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.subjects.SetWidth(m.width)
	m.subjects.SetHeight(maxInt(1, vpHeight-1))
	for i := range m.formInputs {
		promptWidth := lipgloss.Width(m.formInputs[i].Prompt)
		m.formInputs[i].Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabSubjects {
		m.subjects.Focus()
	} else {
		m.subjects.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + padLines(m.renderSummaryLine(), m.width)
}

func (m *Model) renderSummaryLine() string {
	name := m.state.Profile.Name
	if name == "" {
		name = "student"
	}
	parts := []string{
		fmt.Sprintf("%s  target=%s %d", name, m.state.Profile.TargetCollege, m.state.Profile.ExamYear),
		fmt.Sprintf("entries=%d", len(m.state.Entries)),
		fmt.Sprintf("window=%d", m.trendWindow),
	}
	if m.daysLeft != nil {
		parts = append(parts, fmt.Sprintf("exam in %d days", *m.daysLeft))
	}
	return headerStyle.Render(truncateLine(strings.Join(parts, "  "), m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Log entry: a  Quit: q")
}

func (m *Model) renderFooter() string {
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	case m.statusMsg != "":
		return m.renderHelp() + "\n" + okStyle.Render(m.statusMsg)
	default:
		return m.renderHelp()
	}
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabSubjects {
		if m.report.Empty() {
			return fitLines("No study entries found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.subjects.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	now := m.now()
	m.report = stats.BuildReport(m.state.Entries, now)
	m.progress = target.Week(m.state.Entries, m.state.Targets, now)
	m.daysLeft = nil
	if days, err := m.state.Settings.DaysUntilExam(now); err == nil {
		m.daysLeft = &days
	}
	m.subjects.SetRows(subjectRows(m.report))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabTrend].SetContent(renderTrend(m.report, m.trendWindow))
	m.viewports[tabTargets].SetContent(renderTargets(m.progress, width))
}

func renderOverview(r stats.Report, width int) string {
	if r.Empty() {
		return "No study entries found. Press a to log a session."
	}
	o := r.Overall
	cards := []string{
		metricCard("Total Hours", fmt.Sprintf("%.1f", o.TotalHours)),
		metricCard("Days Studied", fmt.Sprintf("%d", o.TotalDays)),
		metricCard("Streak", fmt.Sprintf("%d", o.Streak)),
		metricCard("Questions", fmt.Sprintf("%d", o.TotalQuestions)),
		metricCard("Avg Perf", fmt.Sprintf("%.1f/10", o.AvgPerformance)),
		metricCard("Consistency", fmt.Sprintf("%.1f%%", r.Efficiency.Consistency)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	weekly := strings.Join(stats.WeeklyLines(r.Weekly), "\n")
	eff := strings.Join(stats.EfficiencyLines(r.Efficiency, r.PreferredDays), "\n")
	return strings.TrimRight(summary+"\n\n"+weekly+"\n\n"+eff, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderTrend(r stats.Report, window int) string {
	if r.Empty() {
		return "No study entries found."
	}
	return strings.Join(stats.TrendLines(r.Trend, window), "\n")
}

func renderTargets(progress []target.SubjectProgress, width int) string {
	barWidth := stats.BarWidthFor(width)
	lines := []string{"This week's targets"}
	for _, p := range progress {
		lines = append(lines,
			"",
			cardValueStyle.Render(string(p.Subject)),
			fmt.Sprintf("  Hours     %s %5.1f%%  (%.1f / %.1f)", stats.Bar(p.HoursPct, 100, barWidth), p.HoursPct, p.Hours, p.Target.Hours),
			fmt.Sprintf("  Questions %s %5.1f%%  (%d / %d)", stats.Bar(p.QuestionsPct, 100, barWidth), p.QuestionsPct, p.Questions, p.Target.Questions),
		)
	}
	return strings.Join(lines, "\n")
}

func subjectColumns() []table.Column {
	return []table.Column{
		{Title: "Subject", Width: 10},
		{Title: "Hours", Width: 7},
		{Title: "Share", Width: 7},
		{Title: "Ideal", Width: 7},
		{Title: "Questions", Width: 9},
		{Title: "Avg Perf", Width: 8},
		{Title: "Avg Motiv", Width: 9},
		{Title: "Days", Width: 5},
	}
}

func subjectRows(r stats.Report) []table.Row {
	rows := make([]table.Row, 0, len(model.Subjects))
	if r.Empty() {
		return rows
	}
	for _, subj := range model.Subjects {
		s := stats.SubjectTotals(r.Subjects, subj)
		share := "-"
		if pct, ok := r.Balance[subj]; ok {
			share = fmt.Sprintf("%.1f%%", pct)
		}
		rows = append(rows, table.Row{
			string(subj),
			fmt.Sprintf("%.1f", s.Hours),
			share,
			fmt.Sprintf("%.1f", r.Ideal[subj]),
			fmt.Sprintf("%d", s.Questions),
			fmt.Sprintf("%.1f", s.AvgPerformance),
			fmt.Sprintf("%.1f", s.AvgMotivation),
			fmt.Sprintf("%d", s.StudyDays),
		})
	}
	return rows
}

func buildSubjectTable(rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(subjectColumns()),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(subjectTableStyles())
	return t
}

func subjectTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startForm() (tea.Model, tea.Cmd) {
	m.formMode = true
	m.formError = ""
	for i := range m.formInputs {
		m.formInputs[i].SetValue("")
	}
	m.formInputs[fieldDate].SetValue(m.now().Format(model.DateLayout))
	return m, m.setFormIndex(0)
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.formMode = false
		m.formError = ""
		return m, nil
	case tea.KeyEnter:
		entry, err := m.formEntry()
		if err != nil {
			m.formError = err.Error()
			return m, nil
		}
		next, err := m.tracker.AddEntries(m.state, entry)
		if err != nil {
			m.formError = err.Error()
			return m, nil
		}
		m.state = next
		m.formMode = false
		m.formError = ""
		m.errMsg = ""
		m.statusMsg = fmt.Sprintf("Logged %s for %s.", model.FormatHours(float64(entry.Duration)), entry.Subject)
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.setFormIndex(m.formIndex + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.setFormIndex(m.formIndex - 1)
	}
	var cmd tea.Cmd
	m.formInputs[m.formIndex], cmd = m.formInputs[m.formIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFormIndex(idx int) tea.Cmd {
	count := len(m.formInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.formIndex = idx
	var cmd tea.Cmd
	for i := range m.formInputs {
		if i == m.formIndex {
			cmd = m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
	return cmd
}

// formEntry parses the form. Range checks are left to the validator.
func (m *Model) formEntry() (model.StudyEntry, error) {
	value := func(field int) string {
		return strings.TrimSpace(m.formInputs[field].Value())
	}
	subject, err := model.MatchSubject(value(fieldSubject))
	if err != nil {
		return model.StudyEntry{}, err
	}
	hours, err := strconv.ParseFloat(value(fieldHours), 64)
	if err != nil {
		return model.StudyEntry{}, fmt.Errorf("invalid hours (use a number)")
	}
	ints := map[int]int{}
	for _, field := range []int{fieldQuestions, fieldPerformance, fieldMotivation} {
		raw := value(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return model.StudyEntry{}, fmt.Errorf("invalid %s (use an integer)", strings.TrimSuffix(strings.Fields(m.formInputs[field].Prompt)[0], ":"))
		}
		ints[field] = n
	}
	return model.StudyEntry{
		Date:        value(fieldDate),
		Subject:     subject,
		Duration:    model.Hours(hours),
		Questions:   model.Count(ints[fieldQuestions]),
		Performance: model.Count(ints[fieldPerformance]),
		Motivation:  model.Count(ints[fieldMotivation]),
		Topics:      value(fieldTopics),
	}, nil
}

func (m *Model) renderForm() string {
	body := []string{cardValueStyle.Render("Log Study Session")}
	for _, input := range m.formInputs {
		body = append(body, input.View())
	}
	body = append(body, headerStyle.Render("tab/shift+tab: next field  enter: save  esc: cancel"))
	if m.formError != "" {
		body = append(body, errorStyle.Render(m.formError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
