package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/files"
	"github.com/worknest/worknest-go/identity"
	"github.com/worknest/worknest-go/internal/config"
	"github.com/worknest/worknest-go/projects"
	"github.com/worknest/worknest-go/session"
	"github.com/worknest/worknest-go/session/store"
	"github.com/worknest/worknest-go/transport"
)

// app holds the wired-up clients shared by every command. Built once in the
// root command's PersistentPreRunE.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	session  *session.Manager
	identity *identity.Client
	projects *projects.Client
	files    *files.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "worknest",
		Short:         "WorkNest project management client",
		Long:          "Command-line client for the WorkNest project and task management platform.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.worknest.yaml)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newResetPasswordCmd(a),
		newProjectsCmd(a),
		newStagesCmd(a),
		newTasksCmd(a),
		newFilesCmd(a),
		newUsersCmd(a),
		newServeStubCmd(a),
	)
	return root
}

func (a *app) init(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	identityClient, err := identity.NewClient(cfg.IdentityURL,
		identity.WithHTTPClient(transport.New("identity", nil, a.logger, cfg.RequestTimeout)),
		identity.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.identity = identityClient

	credStore, err := store.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	mgr, err := session.NewManager(identityClient, credStore, session.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.session = mgr

	// Flash-style notices (session expiry and the like) go to stderr.
	mgr.SubscribeNotices(func(msg string) {
		fmt.Fprintln(os.Stderr, "!", msg)
	})

	projectClient, err := projects.NewClient(cfg.ProjectURL, mgr,
		projects.WithHTTPClient(transport.New("project", nil, a.logger, cfg.RequestTimeout)),
		projects.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.projects = projectClient

	fileClient, err := files.NewClient(cfg.StorageURL, mgr,
		files.WithHTTPClient(transport.New("storage", nil, a.logger, cfg.RequestTimeout)),
		files.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.files = fileClient
	return nil
}

// requireSession fails fast with a friendly message when no one is logged in.
func (a *app) requireSession() error {
	if !a.session.IsLoggedIn() {
		return fmt.Errorf("not logged in; run `worknest login` first")
	}
	return nil
}
