package main

import (
	"fmt"
	"image/color"

	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"task-tracker/internal/client"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
)

var (
	dimColor       = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	errColor       = color.NRGBA{R: 0xFF, G: 0x40, B: 0x40, A: 0xFF}
	openColor      = color.NRGBA{R: 0x00, G: 0xA0, B: 0xFF, A: 0xFF}
	pendingColor   = color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	completedColor = color.NRGBA{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}
)

// snapshot is the fetched state one frame renders from.
type snapshot struct {
	status  client.Status
	tasks   []task.Task
	users   []client.User
	rows    []report.Row
	events  []activity.Event
	lastErr string
	synced  string
}

func (ui *UI) snapshot() snapshot {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	s := snapshot{
		status:  ui.status,
		tasks:   ui.tasks,
		users:   ui.users,
		rows:    ui.rows,
		events:  ui.events,
		lastErr: ui.lastErr,
		synced:  "never",
	}
	if !ui.lastSync.IsZero() {
		s.synced = ui.lastSync.Format("15:04:05")
	}
	return s
}

func (ui *UI) layout(gtx layout.Context) layout.Dimensions {
	s := ui.snapshot()
	for len(ui.taskControls) < len(s.tasks) {
		ui.taskControls = append(ui.taskControls, taskControls{})
	}

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return ui.layoutNav(gtx)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(16), Right: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(16)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
						switch ui.currentPage {
						case pageTasks:
							return ui.layoutTasks(gtx, s.tasks)
						case pageUsers:
							return ui.layoutUsers(gtx, s.users)
						case pageReport:
							return ui.layoutReport(gtx, s.rows)
						case pageActivity:
							return ui.layoutActivity(gtx, s.events)
						default:
							return ui.layoutDashboard(gtx, s)
						}
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						if s.lastErr == "" {
							return layout.Dimensions{}
						}
						label := material.Caption(theme, s.lastErr)
						label.Color = errColor
						return label.Layout(gtx)
					}),
				)
			})
		}),
	)
}

func (ui *UI) layoutNav(gtx layout.Context) layout.Dimensions {
	gtx.Constraints.Min.X = gtx.Dp(unit.Dp(180))
	gtx.Constraints.Max.X = gtx.Dp(unit.Dp(180))
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(12)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				label := material.H6(theme, "tasks")
				label.Color = theme.Palette.ContrastFg
				return label.Layout(gtx)
			})
		}),
		layout.Rigid(navBtn(theme, &ui.navDashboard, "Dashboard", ui.currentPage == pageDashboard)),
		layout.Rigid(navBtn(theme, &ui.navTasks, "Tasks", ui.currentPage == pageTasks)),
		layout.Rigid(navBtn(theme, &ui.navUsers, "Users", ui.currentPage == pageUsers)),
		layout.Rigid(navBtn(theme, &ui.navReport, "Time spent", ui.currentPage == pageReport)),
		layout.Rigid(navBtn(theme, &ui.navActivity, "Activity", ui.currentPage == pageActivity)),
	)
}

func navBtn(th *material.Theme, btn *widget.Clickable, label string, active bool) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Top: unit.Dp(2), Bottom: unit.Dp(2), Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			b := material.Button(th, btn, label)
			if active {
				b.Background = th.Palette.ContrastBg
			} else {
				b.Background = color.NRGBA{A: 0}
			}
			b.Color = th.Palette.Fg
			return b.Layout(gtx)
		})
	}
}

func smallBtn(btn *widget.Clickable, label string) layout.FlexChild {
	return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Right: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			b := material.Button(theme, btn, label)
			b.TextSize = unit.Sp(12)
			b.Inset = layout.UniformInset(unit.Dp(6))
			return b.Layout(gtx)
		})
	})
}

func editor(ed *widget.Editor, hint string) layout.FlexChild {
	return layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Right: unit.Dp(8)}.Layout(gtx, material.Editor(theme, ed, hint).Layout)
	})
}

func heading(title string) layout.FlexChild {
	return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Bottom: unit.Dp(8)}.Layout(gtx, material.H5(theme, title).Layout)
	})
}

func statusColor(s task.Status) color.NRGBA {
	switch s {
	case task.StatusPending:
		return pendingColor
	case task.StatusCompleted:
		return completedColor
	}
	return openColor
}

func (ui *UI) layoutDashboard(gtx layout.Context, s snapshot) layout.Dimensions {
	line := func(format string, args ...any) layout.FlexChild {
		return layout.Rigid(material.Body1(theme, fmt.Sprintf(format, args...)).Layout)
	}
	return layout.Flex{Axis: layout.Vertical, Spacing: layout.SpaceEnd}.Layout(gtx,
		heading("Dashboard"),
		line("Tasks: %d", s.status.Tasks),
		line("Open: %d", s.status.OpenTasks),
		line("Pending: %d", s.status.PendingTasks),
		line("Completed: %d", s.status.CompletedTasks),
		line("Users: %d", s.status.Users),
		line("Activity events: %d", s.status.Events),
		layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Caption(theme, "Last sync: "+s.synced)
			label.Color = dimColor
			return label.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(material.Button(theme, &ui.refreshBtn, "Refresh").Layout),
	)
}

func (ui *UI) layoutTasks(gtx layout.Context, tasks []task.Task) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		heading("Tasks"),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{}.Layout(gtx,
				editor(&ui.titleEditor, "Title..."),
				editor(&ui.descEditor, "Description..."),
				layout.Rigid(material.Button(theme, &ui.createTaskBtn, "Create").Layout),
			)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.taskList).Layout(gtx, len(tasks), func(gtx layout.Context, i int) layout.Dimensions {
				t := tasks[i]
				c := &ui.taskControls[i]
				owner := "unassigned"
				if t.UserID != nil {
					owner = fmt.Sprintf("user %d", *t.UserID)
				}

				var buttons []layout.FlexChild
				if t.Status != task.StatusOpen {
					buttons = append(buttons, smallBtn(&c.open, "Reopen"))
				}
				if t.Status != task.StatusPending {
					buttons = append(buttons, smallBtn(&c.start, "Start"))
				}
				if t.Status != task.StatusCompleted {
					buttons = append(buttons, smallBtn(&c.complete, "Complete"))
				}
				buttons = append(buttons, smallBtn(&c.remove, "Delete"))

				return layout.Inset{Bottom: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Body2(theme, fmt.Sprintf("#%d %s", t.ID, t.Title))
							label.Font.Weight = font.Bold
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Caption(theme, fmt.Sprintf("[%s] %s, %s tracked", t.Status, owner, report.FormatTimeSpent(t.TimeSpent)))
							label.Color = statusColor(t.Status)
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							return layout.Inset{Top: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
								return layout.Flex{}.Layout(gtx, buttons...)
							})
						}),
					)
				})
			})
		}),
	)
}

func (ui *UI) layoutUsers(gtx layout.Context, users []client.User) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		heading("Users"),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{}.Layout(gtx,
				editor(&ui.usernameEditor, "Username..."),
				editor(&ui.emailEditor, "Email..."),
				editor(&ui.passwordEditor, "Password..."),
				layout.Rigid(material.Button(theme, &ui.createUserBtn, "Register").Layout),
			)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{}.Layout(gtx,
				editor(&ui.assignTaskEd, "Task id..."),
				editor(&ui.assignUserEd, "User id..."),
				layout.Rigid(material.Button(theme, &ui.assignBtn, "Assign").Layout),
			)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.userList).Layout(gtx, len(users), func(gtx layout.Context, i int) layout.Dimensions {
				u := users[i]
				return layout.Inset{Bottom: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Body2(theme, fmt.Sprintf("#%d %s <%s>", u.ID, u.Username, u.Email))
							label.Font.Weight = font.Bold
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Caption(theme, fmt.Sprintf("%d tasks", len(u.Tasks)))
							label.Color = dimColor
							return label.Layout(gtx)
						}),
					)
				})
			})
		}),
	)
}

func (ui *UI) layoutReport(gtx layout.Context, rows []report.Row) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		heading("Time spent"),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			if len(rows) == 0 {
				label := material.Body1(theme, "No tracked time yet.")
				label.Color = dimColor
				return label.Layout(gtx)
			}
			return material.List(theme, &ui.reportList).Layout(gtx, len(rows), func(gtx layout.Context, i int) layout.Dimensions {
				r := rows[i]
				who := "none"
				if r.Username != nil {
					who = *r.Username
				}
				return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx,
					material.Body2(theme, fmt.Sprintf("#%d %-40s %12s  %s", r.TaskID, r.Title, r.TimeSpent, who)).Layout)
			})
		}),
	)
}

func (ui *UI) layoutActivity(gtx layout.Context, events []activity.Event) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		heading("Activity"),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.activityList).Layout(gtx, len(events), func(gtx layout.Context, i int) layout.Dimensions {
				e := events[i]
				return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Body2(theme, fmt.Sprintf("[%s] %s %s %d <- %s",
								e.Timestamp.Local().Format("15:04:05"), e.Type, e.Entity, e.EntityID, e.Source))
							label.Font.Weight = font.Bold
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Caption(theme, e.ID)
							label.Color = dimColor
							return label.Layout(gtx)
						}),
					)
				})
			})
		}),
	)
}
