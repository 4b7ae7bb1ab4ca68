package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

const (
	viewHeader   = "header"
	viewFooter   = "footer"
	viewProjects = "projects"
	viewTasks    = "tasks"
	viewGantt    = "gantt"
	viewDetails  = "details"
	viewHistory  = "history"
	viewForm     = "form"
	viewHelp     = "help"
)

type UI struct {
	store  *db.Store
	gui    *gocui.Gui
	charts *gantt.Cache

	projects        []model.Project
	selectedProject int

	snapshot     db.Snapshot
	chart        *gantt.Chart
	selectedTask int
	collapsed    map[int64]bool
	view         timeline.ViewType
	critical     bool

	history         []model.HistoryEntry
	selectedHistory int
	focus           string

	form       *formState
	formEditor *formEditor
	helpActive bool
	status     string
}

type formState struct {
	kind         formKind
	taskID       int64
	parentTaskID *int64
	fields       []formField
	index        int
}

type formEditor struct {
	ui *UI
}

type Options struct {
	View      timeline.ViewType
	CacheSize int
}

func newUI(store *db.Store, opts Options) (*UI, error) {
	charts, err := gantt.NewCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	view := opts.View
	if view == "" {
		view = timeline.ViewMonth
	}
	ui := &UI{
		store:     store,
		charts:    charts,
		focus:     viewTasks,
		collapsed: make(map[int64]bool),
		view:      view,
		critical:  true,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui, nil
}

func Run(store *db.Store, opts Options) error {
	ui, err := newUI(store, opts)
	if err != nil {
		return err
	}

	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadProjects(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'n', u.addProject},
		{"", 'a', u.addTask},
		{"", 's', u.addSubtask},
		{"", 'e', u.editTask},
		{"", 'd', u.deleteTask},
		{"", 'l', u.linkTask},
		{"", 'm', u.moveTask},
		{"", 'x', u.toggleDone},
		{"", 'v', u.cycleView},
		{"", 'c', u.toggleCritical},
		{"", '[', u.scrollChartLeft},
		{"", ']', u.scrollChartRight},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusProjects},
		{"", '2', u.focusTasks},
		{"", '3', u.focusGantt},
		{"", '4', u.focusDetails},
		{"", '5', u.focusHistory},
		{viewProjects, gocui.KeyEnter, u.selectProject},
		{viewTasks, gocui.KeyEnter, u.toggleCollapse},
		{viewGantt, gocui.KeyEnter, u.toggleCollapse},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyCtrlJ, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, name := range []string{viewProjects, viewTasks, viewGantt, viewHistory} {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
		)
	}

	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewProjects, viewTasks, viewGantt, viewHistory} {
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: name, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, name, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := l.leftWidth - 1
	rightX0 := min(leftX1+1, maxX-1)
	chartY1 := bodyTop + l.chartHeight - 1
	lowerY0 := chartY1 + 1
	detailsX1 := min(rightX0+l.detailsWidth-1, maxX-1)

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, leftX1, chartY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tasksView.Title = "2 Tasks"
		tasksView.TitleColor = gocui.ColorYellow
	}
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView)

	ganttView, err := gui.SetView(viewGantt, rightX0, bodyTop, maxX-1, chartY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		ganttView.Wrap = false
	}
	ganttView.Title = "3 Gantt (" + string(u.view) + ")"
	applyViewStyle(ganttView, u.focus == viewGantt, false)
	u.renderGantt(ganttView)
	u.syncRows(tasksView, ganttView)

	projectsView, err := gui.SetView(viewProjects, 0, lowerY0, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		projectsView.Title = "1 Projects"
		projectsView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(projectsView, u.focus == viewProjects, true)
	u.renderProjects(projectsView)

	detailsView, err := gui.SetView(viewDetails, rightX0, lowerY0, detailsX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailsView.Title = "4 Details"
		detailsView.Wrap = true
	}
	applyViewStyle(detailsView, u.focus == viewDetails, false)
	u.renderDetails(detailsView)

	historyView, err := gui.SetView(viewHistory, min(detailsX1+1, maxX-1), lowerY0, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		historyView.Title = "5 History"
	}
	applyViewStyle(historyView, u.focus == viewHistory, true)
	u.renderHistory(historyView, u.focus == viewHistory)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.form != nil

	return nil
}

type layout struct {
	leftWidth    int
	chartHeight  int
	detailsWidth int
}

// computeLayout splits the body: task tree and chart side by side on top,
// projects, details and history below.
func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := max(safeWidth/3, 26)
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	chartHeight := max(int(float64(safeHeight)*0.6), 5)
	if safeHeight-chartHeight < 4 {
		chartHeight = max(safeHeight-4, 4)
	}

	detailsWidth := max((safeWidth-leftWidth)/2, 20)

	return layout{leftWidth: leftWidth, chartHeight: chartHeight, detailsWidth: detailsWidth}
}

func (u *UI) currentProject() *model.Project {
	if u.selectedProject >= 0 && u.selectedProject < len(u.projects) {
		return &u.projects[u.selectedProject]
	}
	return nil
}

func (u *UI) loadProjects() error {
	projects, err := u.store.ListProjects(context.Background())
	if err != nil {
		return err
	}
	u.projects = projects
	if u.selectedProject >= len(u.projects) {
		u.selectedProject = max(len(u.projects)-1, 0)
	}
	return u.loadChart()
}

// loadChart reads the selected project and rebuilds its chart. The cache
// key carries the project revision, so unchanged projects are not rebuilt.
func (u *UI) loadChart() error {
	project := u.currentProject()
	if project == nil {
		u.snapshot = db.Snapshot{}
		u.chart = nil
		u.history = nil
		return nil
	}

	snapshot, err := u.store.Snapshot(context.Background(), project.ID)
	if err != nil {
		return err
	}
	u.snapshot = snapshot
	u.projects[u.selectedProject] = snapshot.Project

	params := gantt.Params{View: u.view, Expanded: expandedSet(snapshot.Tasks, u.collapsed)}
	planner := u.store.Planner
	chart, err := u.charts.Chart(gantt.KeyFor(snapshot.Project, params, planner.Now()), func() (*gantt.Chart, error) {
		return planner.BuildChart(snapshot.Project, snapshot.Tasks, snapshot.Dependencies, params)
	})
	if err != nil {
		return err
	}
	u.chart = chart
	if len(chart.Warnings) > 0 {
		u.status = chart.Warnings[0]
	}

	if u.selectedTask >= len(chart.Tasks) {
		u.selectedTask = max(len(chart.Tasks)-1, 0)
	}
	return u.loadHistory()
}

func (u *UI) loadHistory() error {
	selected := u.selectedTaskRow()
	if selected == nil {
		u.history = nil
		return nil
	}

	history, err := u.store.ListHistory(context.Background(), selected.ID)
	if err != nil {
		return err
	}
	u.history = history
	if u.selectedHistory >= len(u.history) {
		u.selectedHistory = max(len(u.history)-1, 0)
	}
	return nil
}

func (u *UI) selectedTaskRow() *gantt.Task {
	if u.chart == nil {
		return nil
	}
	if u.selectedTask >= 0 && u.selectedTask < len(u.chart.Tasks) {
		return &u.chart.Tasks[u.selectedTask]
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	project := u.currentProject()
	if project == nil {
		fmt.Fprint(view, "No project | press n to create one")
		return
	}
	if u.chart == nil {
		fmt.Fprintf(view, "Project: %s", project.Name)
		return
	}
	fmt.Fprintf(view, "Project: %s | View: %s | Window: %s | Tasks: %d | Critical: %d | Updated %s",
		project.Name, label(string(u.view)), u.chart.Window, u.chart.TotalTasks, len(u.chart.Critical), humanize.Time(project.UpdatedAt))
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "n project | a add | s subtask | e edit | d delete | l link | m move | x done | enter collapse/select")
	fmt.Fprintln(view, "v view | c critical | [ ] scroll | r reload | tab cycle | 1-5 panes | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderProjects(view *gocui.View) {
	view.Clear()
	for i, project := range u.projects {
		prefix := " "
		if i == u.selectedProject {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s (%s..%s)\n", prefix, project.Name, formatDate(project.StartDate), formatDate(project.EndDate))
	}
	if u.focus == viewProjects {
		view.SetCursor(0, min(u.selectedProject, len(u.projects)-1))
	}
}

// renderTasks prints the visible task tree. The first line is a header so
// rows line up with the gantt pane and its scale.
func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	fmt.Fprintln(view, "  Task")
	if u.chart == nil {
		return
	}
	focused := u.focus == viewTasks || u.focus == viewGantt
	for i, row := range u.chart.Tasks {
		prefix := " "
		if i == u.selectedTask {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}

		marker := " "
		if row.HasChildren {
			if row.IsExpanded {
				marker = "-"
			} else {
				marker = "+"
			}
		}

		line := fmt.Sprintf("%s %s%s %s", prefix, strings.Repeat("  ", row.Level), marker, formatTaskSummary(row))
		if u.critical && row.IsCritical {
			line = ansiRed + line + ansiReset
		}
		fmt.Fprintln(view, line)
	}
}

func (u *UI) renderGantt(view *gocui.View) {
	view.Clear()
	if u.chart == nil {
		return
	}
	fmt.Fprintln(view, scaleLine(u.chart))
	for _, row := range u.chart.Tasks {
		fmt.Fprintln(view, barLine(row, u.chart, u.critical))
	}
}

// syncRows keeps the selected row visible and scrolls the tree and the chart
// together.
func (u *UI) syncRows(tasksView, ganttView *gocui.View) {
	_, height := tasksView.Size()
	line := u.selectedTask + 1
	_, oy := tasksView.Origin()
	if line < oy+1 {
		oy = max(line-1, 0)
	}
	if height > 0 && line >= oy+height {
		oy = line - height + 1
	}
	tasksView.SetOrigin(0, oy)
	ox, _ := ganttView.Origin()
	ganttView.SetOrigin(ox, oy)
}

func (u *UI) renderDetails(view *gocui.View) {
	view.Clear()
	selected := u.selectedTaskRow()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}

	lines := []string{}
	if u.focus == viewHistory {
		if entry := u.selectedHistoryEntry(); entry != nil {
			lines = append(lines,
				"History Detail",
				fmt.Sprintf("When: %s (%s)", entry.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(entry.CreatedAt)),
				fmt.Sprintf("Type: %s", label(entry.EventType)),
				fmt.Sprintf("Details: %s", entry.Details),
				"",
			)
		}
	}

	critical := "no"
	if selected.IsCritical {
		critical = "yes"
	}
	lines = append(lines,
		selected.Name,
		fmt.Sprintf("Status: %s | Priority: %s | Progress: %d%%", label(string(selected.Status)), label(string(selected.Priority)), selected.ProgressRate),
		fmt.Sprintf("Planned: %s .. %s", formatDate(selected.PlannedStartDate), formatDate(selected.PlannedEndDate)),
		fmt.Sprintf("Actual: %s .. %s", formatDate(selected.ActualStartDate), formatDate(selected.ActualEndDate)),
		fmt.Sprintf("Slack: %.1f days | Critical: %s", selected.Slack, critical),
	)
	if selected.IsDelayed {
		lines = append(lines, "Delayed: finished after the planned end")
	}

	names := make(map[int64]string, len(u.snapshot.Tasks))
	for _, task := range u.snapshot.Tasks {
		names[task.ID] = task.Name
	}
	var preds []string
	for _, dep := range u.snapshot.Dependencies {
		if dep.SuccessorID == selected.ID {
			preds = append(preds, formatDependency(dep, names))
		}
	}
	if len(preds) > 0 {
		lines = append(lines, "After: "+strings.Join(preds, ", "))
	}
	if selected.Description != "" {
		lines = append(lines, "", selected.Description)
	}

	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) renderHistory(view *gocui.View, focused bool) {
	view.Clear()
	for index, entry := range u.history {
		prefix := " "
		if index == u.selectedHistory {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s | %s | %s\n", prefix, humanize.Time(entry.CreatedAt), entry.EventType, entry.Details)
	}
	if focused {
		view.SetCursor(0, min(u.selectedHistory, len(u.history)-1))
	}
}

func (u *UI) selectedHistoryEntry() *model.HistoryEntry {
	if u.selectedHistory >= 0 && u.selectedHistory < len(u.history) {
		return &u.history[u.selectedHistory]
	}
	return nil
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewProjects:
		u.selectedProject = min(row, len(u.projects)-1)
		if err := u.loadChart(); err != nil {
			return err
		}
		return u.setFocus(gui, viewProjects)
	case viewTasks, viewGantt:
		// first line is the header
		if u.chart != nil && row > 0 {
			u.selectedTask = min(row-1, len(u.chart.Tasks)-1)
		}
		return u.setFocus(gui, viewName)
	case viewHistory:
		u.selectedHistory = min(row, len(u.history)-1)
		return u.setFocus(gui, viewHistory)
	default:
		return nil
	}
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	views := []string{viewProjects, viewTasks, viewGantt, viewDetails, viewHistory}
	for _, name := range views {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) scrollChartLeft(gui *gocui.Gui, _ *gocui.View) error {
	return u.scrollChart(gui, -10)
}

func (u *UI) scrollChartRight(gui *gocui.Gui, _ *gocui.View) error {
	return u.scrollChart(gui, 10)
}

func (u *UI) scrollChart(gui *gocui.Gui, delta int) error {
	if u.inputActive() || gui == nil {
		return nil
	}
	view, err := gui.View(viewGantt)
	if err != nil {
		return nil
	}
	ox, oy := view.Origin()
	view.SetOrigin(max(ox+delta, 0), oy)
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}

	switch u.focus {
	case viewProjects:
		u.focus = viewTasks
	case viewTasks:
		u.focus = viewGantt
	case viewGantt:
		u.focus = viewHistory
	default:
		u.focus = viewProjects
	}
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) focusProjects(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewProjects)
}

func (u *UI) focusTasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTasks)
}

func (u *UI) focusGantt(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewGantt)
}

func (u *UI) focusDetails(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetails)
}

func (u *UI) focusHistory(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewHistory)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return nil
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewProjects:
		if u.selectedProject < len(u.projects)-1 {
			u.selectedProject++
			u.selectedTask = 0
			return u.loadChart()
		}
	case viewTasks, viewGantt:
		if u.chart != nil && u.selectedTask < len(u.chart.Tasks)-1 {
			u.selectedTask++
			return u.loadHistory()
		}
	case viewHistory:
		if u.selectedHistory < len(u.history)-1 {
			u.selectedHistory++
		}
	}
	return nil
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewProjects:
		if u.selectedProject > 0 {
			u.selectedProject--
			u.selectedTask = 0
			return u.loadChart()
		}
	case viewTasks, viewGantt:
		if u.selectedTask > 0 {
			u.selectedTask--
			return u.loadHistory()
		}
	case viewHistory:
		if u.selectedHistory > 0 {
			u.selectedHistory--
		}
	}
	return nil
}

func (u *UI) selectProject(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.selectedTask = 0
	if err := u.loadChart(); err != nil {
		return err
	}
	return u.setFocus(gui, viewTasks)
}

func (u *UI) reload(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadProjects()
}

func (u *UI) cycleView(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.view = u.view.Next()
	return u.loadChart()
}

func (u *UI) toggleCritical(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.critical = !u.critical
	return nil
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 20
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewHelp, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) addProject(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{kind: formProject, fields: buildProjectFields()}
	return nil
}

func (u *UI) addTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.currentProject() == nil {
		return nil
	}
	u.form = &formState{kind: formTask, fields: buildTaskFields(nil)}
	return nil
}

func (u *UI) addSubtask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}

	fields := buildTaskFields(nil)
	fields[fieldPriority].Value = string(selected.Priority)
	fields[fieldCategory].Value = selected.Category
	parentID := selected.ID
	u.form = &formState{kind: formTask, fields: fields, parentTaskID: &parentID}
	return nil
}

func (u *UI) editTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}
	u.form = &formState{kind: formTask, taskID: selected.ID, fields: buildTaskFields(&selected.Task)}
	return nil
}

func (u *UI) linkTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}
	candidates, err := u.store.ValidPredecessors(context.Background(), selected.ID)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	if len(candidates) == 0 {
		u.status = fmt.Sprintf("no task can precede %q", selected.Name)
		return nil
	}
	u.form = &formState{kind: formLink, taskID: selected.ID, fields: buildLinkFields(candidates)}
	return nil
}

func (u *UI) moveTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}
	u.form = &formState{kind: formMove, taskID: selected.ID, fields: buildMoveFields(selected.Task, u.snapshot.Tasks)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(len(u.form.fields)+2, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewForm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = u.formTitle()
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) formTitle() string {
	switch u.form.kind {
	case formProject:
		return "New Project"
	case formLink:
		return "Link Predecessor"
	case formMove:
		return "Move Task"
	}
	if u.form.taskID != 0 {
		return "Edit Task"
	}
	if u.form.parentTaskID != nil {
		return "New Subtask"
	}
	return "New Task"
}

// saveForm applies the open form to the store and closes it on success. A
// rejected save keeps the form open with the error in the status line.
func (u *UI) saveForm() error {
	if u.form == nil {
		return nil
	}
	ctx := context.Background()
	form := u.form

	var err error
	switch form.kind {
	case formProject:
		var project model.Project
		if project, err = u.createProject(ctx, form.fields); err == nil {
			u.selectProjectID(project.ID)
		}
	case formLink:
		predecessorID, typ, lag, parseErr := parseLinkFields(form.fields)
		if err = parseErr; err == nil {
			_, err = u.store.AddDependency(ctx, predecessorID, form.taskID, typ, lag)
		}
	case formMove:
		_, err = u.store.MoveTask(ctx, form.taskID, parseMoveFields(form.fields))
	default:
		err = u.saveTaskForm(ctx)
	}
	if err != nil {
		u.status = err.Error()
		return err
	}

	u.form = nil
	u.status = ""
	return nil
}

func (u *UI) createProject(ctx context.Context, fields []formField) (model.Project, error) {
	input, err := parseProjectFields(fields)
	if err != nil {
		return model.Project{}, err
	}
	return u.store.CreateProject(ctx, input)
}

func (u *UI) saveTaskForm(ctx context.Context) error {
	form := u.form
	if form.taskID == 0 {
		project := u.currentProject()
		if project == nil {
			return errors.New("no project selected")
		}
		input := db.TaskInput{ProjectID: project.ID, ParentTaskID: form.parentTaskID}
		if err := applyTaskFields(form.fields, &input); err != nil {
			return err
		}
		_, err := u.store.CreateTask(ctx, input)
		return err
	}

	current, err := u.store.GetTask(ctx, form.taskID)
	if err != nil {
		return err
	}
	input := db.InputFromTask(current)
	if err := applyTaskFields(form.fields, &input); err != nil {
		return err
	}
	_, err = u.store.UpdateTask(ctx, form.taskID, input)
	return err
}

func (u *UI) selectProjectID(id int64) {
	projects, err := u.store.ListProjects(context.Background())
	if err != nil {
		return
	}
	u.projects = projects
	for i, project := range projects {
		if project.ID == id {
			u.selectedProject = i
			u.selectedTask = 0
		}
	}
}

func (u *UI) submitFormNow(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if err := u.saveForm(); err != nil {
		return nil
	}

	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return u.loadProjects()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		name := field.Label
		if len(field.Options) > 0 {
			name += " (space/←→)"
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, name, field.Value)
	}
	current := u.form.fields[u.form.index]
	labelWidth := len([]rune(current.Label)) + 2
	if len(current.Options) > 0 {
		labelWidth += len([]rune(" (space/←→)"))
	}
	view.SetCursor(labelWidth+len([]rune(current.Value))+2, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if len(field.Options) > 0 {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleOption(field.Options, field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleOption(field.Options, field.Value, -1)
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) deleteTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}
	if err := u.store.DeleteTask(context.Background(), selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadChart()
}

func (u *UI) toggleCollapse(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil || !selected.HasChildren {
		return nil
	}
	u.collapsed[selected.ID] = !u.collapsed[selected.ID]
	return u.loadChart()
}

// toggleDone flips a task between completed at 100% and in progress.
func (u *UI) toggleDone(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRow()
	if selected == nil {
		return nil
	}
	input := db.InputFromTask(selected.Task)
	if selected.Status == model.StatusCompleted {
		input.Status = string(model.StatusInProgress)
		input.ActualEndDate = nil
	} else {
		input.Status = string(model.StatusCompleted)
		input.ProgressRate = 100
		today := timeline.Day(u.store.Planner.Now())
		if input.ActualStartDate == nil {
			start := today
			if input.PlannedStartDate != nil && input.PlannedStartDate.Before(today) {
				start = *input.PlannedStartDate
			}
			input.ActualStartDate = &start
		}
		if input.ActualEndDate == nil {
			end := today
			if input.ActualStartDate.After(end) {
				end = *input.ActualStartDate
			}
			input.ActualEndDate = &end
		}
	}
	if _, err := u.store.UpdateTask(context.Background(), selected.ID, input); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadChart()
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes (projects/tasks/gantt/history)",
		"  1 Projects | 2 Tasks | 3 Gantt | 4 Details | 5 History",
		"  j/k or arrows move selection, enter opens a project",
		"  [ and ] scroll the chart sideways",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Tasks:",
		"  a add task | s add subtask | e edit | d delete",
		"  l link a predecessor | m move under another parent",
		"  x toggle completed | enter collapse/expand",
		"",
		"Chart:",
		"  v cycle day/week/month | c toggle critical path highlight",
		"  █ done ▒ remaining ◆ milestone ! delayed | today",
		"",
		"Forms:",
		"  tab/arrows next field | space/left/right cycle choices",
		"  enter save | esc cancel",
		"",
		"Other:",
		"  n new project | r reload | ? help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
