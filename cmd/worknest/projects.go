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

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			result, err := a.projects.ListProjects(cmd.Context(), projects.PageRequest{Page: page, Size: size})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, p := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
			}
			w.Flush()
			fmt.Printf("page %d/%d (%d projects)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", projects.DefaultPageSize, "page size")

	get := &cobra.Command{
		Use:   "get <project-id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			p, err := a.projects.GetProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("%s\n%s\ncreated %s\n", p.Name, p.Description, p.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			p, err := a.projects.CreateProject(cmd.Context(), projects.CreateProjectRequest{
				Name:        args[0],
				Description: description,
			})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "project description")

	var newName, newDescription string
	update := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			req := projects.UpdateProjectRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = utils.Ptr(newName)
			}
			if cmd.Flags().Changed("description") {
				req.Description = utils.Ptr(newDescription)
			}
			p, err := a.projects.UpdateProject(cmd.Context(), args[0], req)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Updated project %s\n", p.ID)
			return nil
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new name")
	update.Flags().StringVar(&newDescription, "description", "", "new description")

	del := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.projects.DeleteProject(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Project deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}
