package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ngrash/go-tzupdate/tzinstall"
	"github.com/ngrash/go-tzupdate/tzroot"
)

func (a *app) installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <bundle>",
		Short: "Install an update bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read bundle")
			}
			var res tzinstall.Result
			err = a.locked(func() error {
				var err error
				res, err = a.installer().Install(content)
				return err
			})
			a.writeMetrics()
			if err != nil {
				return err
			}
			return a.report(res)
		},
	}
}

func (a *app) uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed update and fall back to the system rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res tzinstall.Result
			err := a.locked(func() error {
				var err error
				res, err = a.installer().Uninstall()
				return err
			})
			a.writeMetrics()
			if err != nil {
				return err
			}
			return a.report(res)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the installed, system and active rules versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i := a.installer()
			system, err := i.SystemRulesVersion()
			if err != nil {
				return err
			}
			installed := "none"
			if v, err := i.InstalledVersion(); err != nil {
				installed = fmt.Sprintf("unreadable (%v)", err)
			} else if v != nil {
				installed = v.String()
			}
			loc := tzroot.Locate(a.cfg.DataDir, a.cfg.SystemRulesFile)

			fmt.Fprintln(a.out, "Data dir:", a.cfg.DataDir)
			fmt.Fprintln(a.out, "System rules:", system)
			fmt.Fprintln(a.out, "Installed:", installed)
			fmt.Fprintf(a.out, "Active: %s (%s, %s)\n", loc.RulesVersion, loc.Source, loc.Path)
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the active rules-data file whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tzroot.NewWatcher(a.cfg.DataDir, a.cfg.SystemRulesFile, a.log)
			return w.Run(cmd.Context(), func(loc tzroot.Location) {
				fmt.Fprintf(a.out, "%s %s %s\n", loc.Source, loc.RulesVersion, loc.Path)
			})
		},
	}
}
