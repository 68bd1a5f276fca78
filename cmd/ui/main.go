package main

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"go.uber.org/zap"

	"task-tracker/internal/client"
	"task-tracker/internal/config"
	"task-tracker/internal/logger"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
)

var theme *material.Theme

// Pages
const (
	pageDashboard = iota
	pageTasks
	pageUsers
	pageReport
	pageActivity
)

const pollInterval = 5 * time.Second

// taskControls are the per-row buttons on the tasks page.
type taskControls struct {
	open, start, complete, remove widget.Clickable
}

type UI struct {
	api *client.Client
	log *zap.Logger
	win *app.Window

	currentPage int

	// Nav buttons
	navDashboard widget.Clickable
	navTasks     widget.Clickable
	navUsers     widget.Clickable
	navReport    widget.Clickable
	navActivity  widget.Clickable

	refreshBtn widget.Clickable

	// Tasks
	taskList      widget.List
	taskControls  []taskControls
	titleEditor   widget.Editor
	descEditor    widget.Editor
	createTaskBtn widget.Clickable

	// Users
	userList       widget.List
	usernameEditor widget.Editor
	emailEditor    widget.Editor
	passwordEditor widget.Editor
	createUserBtn  widget.Clickable
	assignTaskEd   widget.Editor
	assignUserEd   widget.Editor
	assignBtn      widget.Clickable

	reportList   widget.List
	activityList widget.List

	// Guarded by mu; written by the fetch goroutines, read by the frame loop.
	mu       sync.Mutex
	status   client.Status
	tasks    []task.Task
	users    []client.User
	rows     []report.Row
	events   []activity.Event
	lastErr  string
	lastSync time.Time
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	theme = material.NewTheme()
	theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	theme.Palette.Bg = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	theme.Palette.Fg = color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	theme.Palette.ContrastBg = color.NRGBA{R: 0x30, G: 0x60, B: 0xA0, A: 0xFF}
	theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	ui := &UI{
		api: client.New(cfg.APIURL, "ui"),
		log: log.Named("ui"),
		win: new(app.Window),
	}
	ui.taskList.Axis = layout.Vertical
	ui.userList.Axis = layout.Vertical
	ui.reportList.Axis = layout.Vertical
	ui.activityList.Axis = layout.Vertical
	for _, ed := range []*widget.Editor{
		&ui.titleEditor, &ui.descEditor,
		&ui.usernameEditor, &ui.emailEditor, &ui.passwordEditor,
		&ui.assignTaskEd, &ui.assignUserEd,
	} {
		ed.SingleLine = true
	}
	ui.passwordEditor.Mask = '•'
	ui.assignTaskEd.Filter = "0123456789"
	ui.assignUserEd.Filter = "0123456789"

	ui.log.Info("task tracker ui starting", zap.String("api", cfg.APIURL))
	go ui.pollData()

	go func() {
		ui.win.Option(app.Title("task-tracker"))
		ui.win.Option(app.Size(unit.Dp(1200), unit.Dp(800)))
		if err := ui.run(ui.win); err != nil {
			ui.log.Fatal("window closed", zap.Error(err))
		}
		os.Exit(0)
	}()
	app.Main()
}

func (ui *UI) run(w *app.Window) error {
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ui.handleClicks(gtx)
			ui.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (ui *UI) pollData() {
	ui.fetchAll()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		ui.fetchAll()
	}
}

func (ui *UI) fetchAll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
	defer cancel()

	status, err := ui.api.Status(ctx)
	if err != nil {
		ui.fail("fetch status", err)
		return
	}
	tasks, err := ui.api.Tasks(ctx)
	if err != nil {
		ui.fail("fetch tasks", err)
		return
	}
	users, err := ui.api.Users(ctx)
	if err != nil {
		ui.fail("fetch users", err)
		return
	}
	rows, err := ui.api.Report(ctx)
	if err != nil {
		ui.fail("fetch report", err)
		return
	}
	events, err := ui.api.Activity(ctx, 100)
	if err != nil {
		ui.fail("fetch activity", err)
		return
	}

	ui.mu.Lock()
	ui.status, ui.tasks, ui.users, ui.rows, ui.events = status, tasks, users, rows, events
	ui.lastErr = ""
	ui.lastSync = time.Now()
	ui.mu.Unlock()
	ui.win.Invalidate()
}

func (ui *UI) fail(what string, err error) {
	ui.log.Warn(what+" failed", zap.Error(err))
	ui.mu.Lock()
	ui.lastErr = fmt.Sprintf("%s: %v", what, err)
	ui.mu.Unlock()
	ui.win.Invalidate()
}

// mutate runs a write against the API and refreshes everything once it lands.
func (ui *UI) mutate(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()
		if err := fn(ctx); err != nil {
			ui.fail(what, err)
			return
		}
		ui.log.Debug(what + " ok")
		ui.fetchAll()
	}()
}

func (ui *UI) handleClicks(gtx layout.Context) {
	if ui.navDashboard.Clicked(gtx) {
		ui.currentPage = pageDashboard
	}
	if ui.navTasks.Clicked(gtx) {
		ui.currentPage = pageTasks
	}
	if ui.navUsers.Clicked(gtx) {
		ui.currentPage = pageUsers
	}
	if ui.navReport.Clicked(gtx) {
		ui.currentPage = pageReport
	}
	if ui.navActivity.Clicked(gtx) {
		ui.currentPage = pageActivity
	}
	if ui.refreshBtn.Clicked(gtx) {
		go ui.fetchAll()
	}

	if ui.createTaskBtn.Clicked(gtx) {
		title, desc := ui.titleEditor.Text(), ui.descEditor.Text()
		if title != "" {
			ui.mutate("create task", func(ctx context.Context) error {
				_, err := ui.api.CreateTask(ctx, title, desc)
				return err
			})
			ui.titleEditor.SetText("")
			ui.descEditor.SetText("")
		}
	}

	if ui.createUserBtn.Clicked(gtx) {
		name, email, pw := ui.usernameEditor.Text(), ui.emailEditor.Text(), ui.passwordEditor.Text()
		ui.mutate("create user", func(ctx context.Context) error {
			_, err := ui.api.CreateUser(ctx, name, email, pw)
			return err
		})
		ui.passwordEditor.SetText("")
	}

	if ui.assignBtn.Clicked(gtx) {
		taskID, err1 := strconv.ParseInt(ui.assignTaskEd.Text(), 10, 64)
		userID, err2 := strconv.ParseInt(ui.assignUserEd.Text(), 10, 64)
		if err1 == nil && err2 == nil {
			ui.mutate("assign task", func(ctx context.Context) error {
				_, err := ui.api.Assign(ctx, taskID, userID)
				return err
			})
		}
	}

	ui.mu.Lock()
	tasks := ui.tasks
	ui.mu.Unlock()
	for i := range ui.taskControls {
		if i >= len(tasks) {
			break
		}
		id := tasks[i].ID
		c := &ui.taskControls[i]
		if c.open.Clicked(gtx) {
			ui.transition(id, task.StatusOpen)
		}
		if c.start.Clicked(gtx) {
			ui.transition(id, task.StatusPending)
		}
		if c.complete.Clicked(gtx) {
			ui.transition(id, task.StatusCompleted)
		}
		if c.remove.Clicked(gtx) {
			ui.mutate("delete task", func(ctx context.Context) error {
				return ui.api.DeleteTask(ctx, id)
			})
		}
	}
}

func (ui *UI) transition(id int64, to task.Status) {
	ui.mutate("move task to "+to.String(), func(ctx context.Context) error {
		_, err := ui.api.Transition(ctx, id, to)
		return err
	})
}
