package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"smartlife/client/internal/media"
	"smartlife/client/internal/model"
)

func tasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
	}
	cmd.AddCommand(tasksListCmd(a))
	cmd.AddCommand(tasksAddCmd(a))
	cmd.AddCommand(tasksUpdateCmd(a))
	cmd.AddCommand(tasksToggleCmd(a))
	cmd.AddCommand(tasksMoveCmd(a))
	cmd.AddCommand(tasksDeleteCmd(a))
	return cmd
}

func tasksListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")
			status, _ := cmd.Flags().GetString("status")

			tasks, err := a.tasks.GetTasks(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			if status != "" {
				filtered := tasks[:0]
				for _, task := range tasks {
					if task.Status == status {
						filtered = append(filtered, task)
					}
				}
				tasks = filtered
			}

			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			} else {
				printTasks(cmd.OutOrStdout(), tasks)
			}
			if a.tasks.Offline() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Offline: showing tasks stored on this device")
			}
			return nil
		},
	}
	cmd.Flags().Bool("refresh", false, "Reload from the server")
	cmd.Flags().String("status", "", "Only show tasks with this status")
	return cmd
}

func tasksAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := model.TaskInput{Title: args[0]}
			input.Desc, _ = cmd.Flags().GetString("desc")
			input.Priority, _ = cmd.Flags().GetString("priority")
			input.Status, _ = cmd.Flags().GetString("status")
			input.Deadline, _ = cmd.Flags().GetString("deadline")
			input.Accent, _ = cmd.Flags().GetString("accent")
			if cover, _ := cmd.Flags().GetString("cover"); cover != "" {
				url, err := media.EncodeDataURL(cover, 0)
				if err != nil {
					return err
				}
				input.CoverImage = url
			}

			created, err := a.tasks.AddTask(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", created.ID, created.Title)
			return nil
		},
	}
	addTaskFlags(cmd)
	return cmd
}

func tasksUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := model.TaskChanges{}
			fields := map[string]**string{
				"title":    &changes.Title,
				"desc":     &changes.Desc,
				"priority": &changes.Priority,
				"status":   &changes.Status,
				"deadline": &changes.Deadline,
				"accent":   &changes.Accent,
			}
			for name, field := range fields {
				if cmd.Flags().Changed(name) {
					value, _ := cmd.Flags().GetString(name)
					*field = &value
				}
			}
			if cmd.Flags().Changed("cover") {
				path, _ := cmd.Flags().GetString("cover")
				url := ""
				if path != "" {
					encoded, err := media.EncodeDataURL(path, 0)
					if err != nil {
						return err
					}
					url = encoded
				}
				changes.CoverImage = &url
			}

			updated, err := a.tasks.UpdateTask(cmd.Context(), args[0], changes)
			if err != nil {
				return err
			}
			return reportTask(cmd.OutOrStdout(), args[0], updated, "Updated")
		},
	}
	cmd.Flags().String("title", "", "Title")
	addTaskFlags(cmd)
	return cmd
}

func tasksToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task completed, or not started again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toggled, err := a.tasks.ToggleTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return reportTask(cmd.OutOrStdout(), args[0], toggled, "Toggled")
		},
	}
}

func tasksMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			moved, err := a.tasks.MoveTask(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return reportTask(cmd.OutOrStdout(), args[0], moved, "Moved")
		},
	}
}

func tasksDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := a.confirm(cmd, fmt.Sprintf("Delete task %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			changed, err := a.tasks.DeleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !changed {
				return fmt.Errorf("task %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().String("priority", "", "Extreme, Moderate or Low")
	cmd.Flags().String("status", "", "Not Started, In Progress or Completed")
	cmd.Flags().String("deadline", "", "Deadline, e.g. 2025-01-31")
	cmd.Flags().String("accent", "", "Accent color")
	cmd.Flags().String("cover", "", "Path of a cover image")
}

func reportTask(w io.Writer, id string, task *model.Task, verb string) error {
	if task == nil {
		return fmt.Errorf("task %s not found", id)
	}
	fmt.Fprintf(w, "%s %s %q [%s]\n", verb, task.ID, task.Title, task.Status)
	return nil
}

func printTasks(w io.Writer, tasks []model.Task) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "PRIORITY", "STATUS", "DEADLINE")
	for _, task := range tasks {
		t.Row(task.ID, task.Title, task.Priority, task.Status, task.Deadline)
	}
	fmt.Fprintln(w, t.Render())
}
