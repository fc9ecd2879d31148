package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/projects"
	"github.com/worknest/worknest-go/users"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer user accounts (admin only)",
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.session.IsAdmin(cmd.Context()) {
				return fmt.Errorf("admin role required")
			}
			result, err := a.projects.ListUsers(cmd.Context(), projects.PageRequest{Page: page, Size: size})
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tVERIFIED")
			for _, u := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", u.ID, u.Email, u.FullName(), u.Role, u.Verified)
			}
			w.Flush()
			fmt.Printf("page %d/%d (%d users)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", projects.DefaultPageSize, "page size")

	setRole := &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAdmin(cmd.Context()) {
				return fmt.Errorf("admin role required")
			}
			u, err := a.projects.SetUserRole(cmd.Context(), args[0], users.RoleType(args[1]))
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAdmin(cmd.Context()) {
				return fmt.Errorf("admin role required")
			}
			if err := a.projects.DeleteUser(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("User deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, setRole, del)
	return cmd
}
