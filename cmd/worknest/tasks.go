package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/internal/utils"
	"github.com/worknest/worknest-go/projects"
)

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
	}

	var stageID, assigneeID string
	var page, size int
	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			result, err := a.projects.ListTasks(cmd.Context(), args[0],
				projects.TaskFilter{StageID: stageID, AssigneeID: assigneeID},
				projects.PageRequest{Page: page, Size: size})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTAGE\tPRIORITY\tASSIGNEE")
			for _, t := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.StageID, t.Priority, t.AssigneeID)
			}
			w.Flush()
			fmt.Printf("page %d/%d (%d tasks)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}
	list.Flags().StringVar(&stageID, "stage", "", "filter by stage")
	list.Flags().StringVar(&assigneeID, "assignee", "", "filter by assignee")
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", projects.DefaultPageSize, "page size")

	get := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			t, err := a.projects.GetTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("%s [%s]\n%s\n", t.Title, t.Priority, t.Description)
			return nil
		},
	}

	var createReq projects.CreateTaskRequest
	var priority string
	create := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			createReq.Title = args[1]
			createReq.Priority = projects.Priority(priority)
			t, err := a.projects.CreateTask(cmd.Context(), args[0], createReq)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Created task %s (%s)\n", t.Title, t.ID)
			return nil
		},
	}
	create.Flags().StringVar(&createReq.StageID, "stage", "", "stage to place the task in")
	create.Flags().StringVar(&createReq.Description, "description", "", "task description")
	create.Flags().StringVar(&createReq.AssigneeID, "assignee", "", "assignee user id")
	create.Flags().StringVar(&priority, "priority", string(projects.PriorityMedium), "LOW, MEDIUM or HIGH")
	_ = create.MarkFlagRequired("stage")

	var title, description, assignee, newPriority string
	update := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			req := projects.UpdateTaskRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = utils.Ptr(title)
			}
			if cmd.Flags().Changed("description") {
				req.Description = utils.Ptr(description)
			}
			if cmd.Flags().Changed("assignee") {
				req.AssigneeID = utils.Ptr(assignee)
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = utils.Ptr(projects.Priority(newPriority))
			}
			if _, err := a.projects.UpdateTask(cmd.Context(), args[0], req); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Task updated.")
			return nil
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&description, "description", "", "new description")
	update.Flags().StringVar(&assignee, "assignee", "", "new assignee user id")
	update.Flags().StringVar(&newPriority, "priority", "", "new priority")

	move := &cobra.Command{
		Use:   "move <task-id> <stage-id>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if _, err := a.projects.MoveTask(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Task moved.")
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.projects.DeleteTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Task deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, move, del)
	return cmd
}
