package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/spmb/apps/api/echo"
	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
	"github.com/trezcool/spmb/storage/database"
	boiledrepos "github.com/trezcool/spmb/storage/database/sqlboiler"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	out        io.Writer
	validate   *validator.Validate
	translator ut.Translator

	// set up by connect
	db        *sql.DB
	schoolSvc school.Service
}

// connect opens the database for the commands that need it.
func (cli *commandLine) connect(*cobra.Command, []string) error {
	if cli.schoolSvc != nil {
		return nil
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	if err = db.Ping(); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	cli.db = db
	cli.schoolSvc = school.NewService(boiledrepos.NewSchoolRepository(db))
	return nil
}

func (cli *commandLine) close() error {
	if cli.db == nil {
		return nil
	}
	return cli.db.Close()
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCommand(),
		cli.addSchoolCommand(),
		cli.schoolsCommand(),
		cli.tokenCommand(),
	)
	return root
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "migrate COMMAND [ARGS...]",
		Short:   "Run a goose migration command (up, up-to, down, down-to, redo, reset, status, version, ...)",
		Args:    cobra.ArbitraryArgs,
		PreRunE: cli.connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return gooseRunFunc(cmdContext(cmd), args[0], cli.db, args[1:]...)
		},
	}
}

func (cli *commandLine) addSchoolCommand() *cobra.Command {
	var ns school.NewSchool
	cmd := &cobra.Command{
		Use:     "addschool",
		Short:   "Register a school",
		Args:    cobra.NoArgs,
		PreRunE: cli.connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ns.Validate(cli.validate); err != nil {
				return cli.validationError(err)
			}
			sch, err := cli.schoolSvc.Create(cmdContext(cmd), ns)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "school %q registered: %s\n", sch.Name, sch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ns.Name, "name", "", "The school's name")
	cmd.Flags().StringVar(&ns.NPSN, "npsn", "", "The school's NPSN (8 digits)")
	cmd.Flags().StringVar(&ns.Address, "address", "", "The school's address")
	return cmd
}

func (cli *commandLine) schoolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "schools",
		Short:   "List the registered schools, the default one first",
		Args:    cobra.NoArgs,
		PreRunE: cli.connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schools, err := cli.schoolSvc.Query(cmdContext(cmd))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNPSN\tNAME")
			for _, sch := range schools {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", sch.ID, sch.NPSN, sch.Name)
			}
			return w.Flush()
		},
	}
}

func (cli *commandLine) tokenCommand() *cobra.Command {
	var (
		username string
		email    string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = core.CleanString(username)
			if username == "" {
				_ = cmd.Usage()
				return errHelp
			}
			if ttl <= 0 {
				return errors.Errorf("invalid ttl %v", ttl)
			}
			claims := echoapi.NewAdminClaims(cli.conf, username, core.CleanString(email, true /* lower */), ttl)
			token, err := echoapi.GenerateToken(cli.conf, claims)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "The operator's username")
	cmd.Flags().StringVar(&email, "email", "", "The operator's email")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "How long the token stays valid")
	return cmd
}

// validationError flattens validation errors into a single readable error.
func (cli *commandLine) validationError(err error) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	fldErrs := core.TranslateErrors(vErrs, cli.translator)
	msgs := make([]string, 0, len(fldErrs))
	for fld, msg := range fldErrs {
		msgs = append(msgs, fld+": "+msg)
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
