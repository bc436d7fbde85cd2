package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type appOpener func(configFile string) (*app.App, func(), error)

func newRootCmd(open appOpener) *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "notecalctl",
		Short:        "Administration of the notecal service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")

	withApp := func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, closeFn, err := open(configFile)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, a)
		}
	}

	root.AddCommand(newUserCmd(withApp), newReportCmd(withApp), newExportCmd(withApp))
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error

func newUserCmd(withApp appRunner) *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}

	var in app.RegisterInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			u, err := a.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created with id %s\n", u.Email, u.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&in.Name, "name", "", "user name")
	add.Flags().StringVar(&in.Email, "email", "", "user email")
	add.Flags().StringVar(&in.Password, "password", "", "user password")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	user.AddCommand(add)
	return user
}

func newReportCmd(withApp appRunner) *cobra.Command {
	var userRef, date, format string
	report := &cobra.Command{
		Use:   "report",
		Short: "Print the attendance report of a user for one day",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			owner, err := resolveUser(cmd, a, userRef)
			if err != nil {
				return err
			}
			day, err := a.ParseDay(date)
			if err != nil {
				return err
			}
			r, err := a.DayReport(cmd.Context(), owner, day)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r, format)
		}),
	}
	report.Flags().StringVar(&userRef, "user", "", "user email or id")
	report.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD")
	report.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	_ = report.MarkFlagRequired("user")
	_ = report.MarkFlagRequired("date")
	return report
}

func newExportCmd(withApp appRunner) *cobra.Command {
	var userRef string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the notes of a user as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			owner, err := resolveUser(cmd, a, userRef)
			if err != nil {
				return err
			}
			cal, err := a.ExportICS(cmd.Context(), owner)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), cal)
			return err
		}),
	}
	export.Flags().StringVar(&userRef, "user", "", "user email or id")
	_ = export.MarkFlagRequired("user")
	return export
}

// resolveUser accepts an email or a user id.
func resolveUser(cmd *cobra.Command, a *app.App, ref string) (string, error) {
	u, err := a.Storage.FindUserByEmail(cmd.Context(), ref)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFoundUser) {
		return "", err
	}
	u, err = a.User(cmd.Context(), ref)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", ref, err)
	}
	return u.ID, nil
}

func writeReport(w io.Writer, r app.DayReport, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
