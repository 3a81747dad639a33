// Package console is the interactive menu front end of the todo service.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
	"github.com/example/todo-evolution/modules/task"
)

const (
	separator  = "------------------------------------------------------------"
	timeLayout = "2006-01-02 15:04:05"
	clearValue = "-"
)

var priorityChoices = map[string]string{
	"1": string(domain.PriorityLow),
	"2": string(domain.PriorityMedium),
	"3": string(domain.PriorityHigh),
}

// App runs the menu loop over a TodoService.
type App struct {
	svc *task.TodoService
	in  *bufio.Scanner
	out io.Writer
}

// New creates an App reading commands from in and writing to out.
func New(svc *task.TodoService, in io.Reader, out io.Writer) *App {
	return &App{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Run shows the menu until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.showMenu()
		choice, ok := a.prompt("Enter your choice (0-5): ")
		if !ok {
			a.goodbye()
			return a.in.Err()
		}

		switch choice {
		case "1":
			a.addTask(ctx)
		case "2":
			a.viewTasks(ctx)
		case "3":
			a.updateTask(ctx)
		case "4":
			a.deleteTask(ctx)
		case "5":
			a.toggleStatus(ctx)
		case "0":
			if a.confirm("Are you sure you want to exit?") {
				a.goodbye()
				return nil
			}
		default:
			a.printf("Invalid choice. Please try again.\n")
		}
	}
}

func (a *App) showMenu() {
	a.printf("\n===== Todo App =====\n")
	a.printf("1. Add Task\n")
	a.printf("2. View All Tasks\n")
	a.printf("3. Update Task\n")
	a.printf("4. Delete Task\n")
	a.printf("5. Toggle Task Status\n")
	a.printf("0. Exit\n")
}

func (a *App) addTask(ctx context.Context) {
	a.printf("\n--- Add New Task ---\n")

	title, _ := a.prompt("Title: ")
	description, _ := a.prompt("Description (optional): ")
	priority := a.promptPriority("Priority (1=Low, 2=Medium, 3=High, Enter=Medium): ")
	tags, _ := a.prompt("Tags (comma-separated, optional): ")

	in := task.CreateInput{
		Title:    title,
		Priority: priority,
		Tags:     splitTags(tags),
	}
	if description != "" {
		in.Description = &description
	}

	t, err := a.svc.CreateTask(ctx, in)
	if err != nil {
		a.fail("creating task", err)
		return
	}
	a.printf("\n[OK] Task created successfully!\n")
	a.printf("  ID: %s\n", t.ID)
	a.printf("  Title: %s\n", t.Title)
}

func (a *App) viewTasks(ctx context.Context) {
	a.printf("\n--- View All Tasks ---\n")

	tasks, err := a.svc.GetAllTasks(ctx, task.ListQuery{})
	if err != nil {
		a.fail("listing tasks", err)
		return
	}
	if len(tasks) == 0 {
		a.printf("\nNo tasks found.\n")
		return
	}

	a.printf("\nTotal tasks: %d\n", len(tasks))
	a.printf("%s\n", separator)
	for _, t := range tasks {
		a.showTask(t)
		a.printf("%s\n", separator)
	}
}

func (a *App) showTask(t *domain.Task) {
	mark := "[ ]"
	if t.Status == domain.StatusCompleted {
		mark = "[x]"
	}
	a.printf("%s [%s] %s\n", mark, t.ID, t.Title)
	a.printf("   Priority: %s | Status: %s\n", strings.ToUpper(string(t.Priority)), t.Status)
	if t.Description != nil && *t.Description != "" {
		a.printf("   Description: %s\n", *t.Description)
	}
	if len(t.Tags) > 0 {
		a.printf("   Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	a.printf("   Created: %s\n", t.CreatedAt.Local().Format(timeLayout))
}

func (a *App) updateTask(ctx context.Context) {
	a.printf("\n--- Update Task ---\n")

	t, ok := a.lookup(ctx)
	if !ok {
		return
	}

	a.printf("\nCurrent task: %s\n", t.Title)
	a.printf("Press Enter to keep a field, or %q to clear description or tags.\n", clearValue)

	var in task.UpdateInput

	if title, _ := a.prompt(fmt.Sprintf("New title [%s]: ", t.Title)); title != "" {
		in.Title = &title
	}

	current := "none"
	if t.Description != nil && *t.Description != "" {
		current = *t.Description
	}
	switch desc, _ := a.prompt(fmt.Sprintf("New description [%s]: ", current)); desc {
	case "":
	case clearValue:
		empty := ""
		in.Description = &empty
	default:
		in.Description = &desc
	}

	if p := a.promptPriority(fmt.Sprintf("New priority (1=Low, 2=Medium, 3=High) [%s]: ", t.Priority)); p != "" {
		in.Priority = &p
	}

	currentTags := "none"
	if len(t.Tags) > 0 {
		currentTags = strings.Join(t.Tags, ", ")
	}
	switch raw, _ := a.prompt(fmt.Sprintf("New tags [%s]: ", currentTags)); raw {
	case "":
	case clearValue:
		tags := []string{}
		in.Tags = &tags
	default:
		tags := splitTags(raw)
		in.Tags = &tags
	}

	updated, err := a.svc.UpdateTask(ctx, t.ID, in)
	if err != nil {
		a.fail("updating task", err)
		return
	}
	a.printf("\n[OK] Task updated successfully!\n")
	a.printf("  ID: %s\n", updated.ID)
	a.printf("  Title: %s\n", updated.Title)
}

func (a *App) deleteTask(ctx context.Context) {
	a.printf("\n--- Delete Task ---\n")

	t, ok := a.lookup(ctx)
	if !ok {
		return
	}

	a.printf("\nTask: %s\n", t.Title)
	if t.Description != nil && *t.Description != "" {
		a.printf("Description: %s\n", *t.Description)
	}

	if !a.confirm("Are you sure you want to delete this task?") {
		a.printf("\nDeletion cancelled.\n")
		return
	}
	if err := a.svc.DeleteTask(ctx, t.ID); err != nil {
		a.fail("deleting task", err)
		return
	}
	a.printf("\n[OK] Task deleted successfully.\n")
}

func (a *App) toggleStatus(ctx context.Context) {
	a.printf("\n--- Toggle Task Status ---\n")

	t, ok := a.lookup(ctx)
	if !ok {
		return
	}

	a.printf("\nTask: %s\n", t.Title)
	a.printf("Current status: %s\n", t.Status)

	updated, err := a.svc.ToggleTaskStatus(ctx, t.ID)
	if err != nil {
		a.fail("toggling task status", err)
		return
	}
	a.printf("\n[OK] Task status updated!\n")
	a.printf("  New status: %s\n", updated.Status)
}

// lookup asks for a task id and loads the task.
func (a *App) lookup(ctx context.Context) (*domain.Task, bool) {
	id, _ := a.prompt("Task ID: ")
	if id == "" {
		a.printf("\n[ERROR] Task ID is required.\n")
		return nil, false
	}
	t, err := a.svc.GetTask(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			a.printf("\n[ERROR] Task with ID '%s' not found.\n", id)
		} else {
			a.fail("loading task", err)
		}
		return nil, false
	}
	return t, true
}

// promptPriority maps the 1/2/3 shortcuts; anything else is passed through
// for the service to validate.
func (a *App) promptPriority(label string) string {
	raw, _ := a.prompt(label)
	if p, ok := priorityChoices[raw]; ok {
		return p
	}
	return raw
}

func (a *App) confirm(question string) bool {
	for {
		answer, ok := a.prompt(question + " (y/n): ")
		if !ok {
			return false
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		a.printf("Please answer y or n.\n")
	}
}

// prompt writes label and reads one trimmed line. ok is false at end of input.
func (a *App) prompt(label string) (string, bool) {
	a.printf("%s", label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *App) fail(action string, err error) {
	a.printf("\n[ERROR] Error %s: %s\n", action, apperr.Message(err))
}

func (a *App) goodbye() {
	a.printf("\nThank you for using the Todo App!\n")
	a.printf("Have a productive day!\n")
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
