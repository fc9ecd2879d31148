package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/projects"
)

func newStagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Manage a project's kanban columns",
	}

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List columns in board order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			stages, err := a.projects.ListStages(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			for _, s := range stages {
				fmt.Printf("%d. %s (%s)\n", s.Position+1, s.Name, s.ID)
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Append a column to the board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			s, err := a.projects.CreateStage(cmd.Context(), args[0], projects.CreateStageRequest{Name: args[1]})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Created stage %s (%s)\n", s.Name, s.ID)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <stage-id> <name>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			s, err := a.projects.RenameStage(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Renamed stage to %s\n", s.Name)
			return nil
		},
	}

	var position int
	move := &cobra.Command{
		Use:   "move <stage-id>",
		Short: "Reorder a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if _, err := a.projects.MoveStage(cmd.Context(), args[0], position); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Stage moved.")
			return nil
		},
	}
	move.Flags().IntVar(&position, "position", 0, "zero-based target position")
	_ = move.MarkFlagRequired("position")

	del := &cobra.Command{
		Use:   "delete <stage-id>",
		Short: "Delete an empty column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.projects.DeleteStage(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("Stage deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, create, rename, move, del)
	return cmd
}
