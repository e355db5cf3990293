package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind"
)

type deviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type processInfo struct {
	PID        uint           `json:"pid"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type applicationInfo struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	PID        uint   `json:"pid,omitempty"`
}

func parsePID(s string) (uint, error) {
	pid, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, xerrors.Errorf("pid %q: %w", s, err)
	}
	return uint(pid), nil
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the frida-core version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			major, minor, micro, nano, err := fridabind.Version()
			if err != nil {
				return err
			}
			text, err := fridabind.VersionString()
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.emit(map[string]interface{}{
					"version": text,
					"major":   major,
					"minor":   minor,
					"micro":   micro,
					"nano":    nano,
				}, nil)
			}
			fmt.Fprintln(a.out, text)
			return nil
		},
	}
}

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the available devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := a.deviceManager()
			if err != nil {
				return err
			}
			dl, err := dm.EnumerateDevices()
			if err != nil {
				return err
			}
			defer dl.Close()

			infos := []deviceInfo{}
			t := &table{header: []string{"Id", "Type", "Name"}}
			for _, d := range dl.All() {
				info := deviceInfo{ID: d.ID(), Name: d.Name(), Type: d.Type().String()}
				d.Close()
				infos = append(infos, info)
				t.add(info.ID, info.Type, info.Name)
			}
			return a.emit(infos, t)
		},
	}
}

func (a *app) psCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List the processes running on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.device()
			if err != nil {
				return err
			}
			defer d.Close()

			var opts *fridabind.ProcessQueryOptions
			if verbose {
				if opts, err = fridabind.NewProcessQueryOptions(); err != nil {
					return err
				}
				defer opts.Close()
				if err = opts.SetScope(fridabind.ScopeFull); err != nil {
					return err
				}
			}
			pl, err := d.EnumerateProcesses(opts)
			if err != nil {
				return err
			}
			defer pl.Close()

			infos := []processInfo{}
			t := &table{header: []string{"PID", "Name"}}
			for _, p := range pl.All() {
				info := processInfo{PID: p.PID(), Name: p.Name()}
				if verbose {
					info.Parameters = p.Parameters()
				}
				p.Close()
				infos = append(infos, info)
				t.add(strconv.FormatUint(uint64(info.PID), 10), info.Name)
			}
			return a.emit(infos, t)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include process parameters")
	return cmd
}

func (a *app) appsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the applications installed on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.device()
			if err != nil {
				return err
			}
			defer d.Close()

			al, err := d.EnumerateApplications(nil)
			if err != nil {
				return err
			}
			defer al.Close()

			infos := []applicationInfo{}
			t := &table{header: []string{"PID", "Name", "Identifier"}}
			for _, ap := range al.All() {
				info := applicationInfo{Identifier: ap.Identifier(), Name: ap.Name(), PID: ap.PID()}
				ap.Close()
				infos = append(infos, info)
				pid := "-"
				if info.PID != 0 {
					pid = strconv.FormatUint(uint64(info.PID), 10)
				}
				t.add(pid, info.Name, info.Identifier)
			}
			return a.emit(infos, t)
		},
	}
}

func (a *app) spawnCommand() *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "spawn <program> [args...]",
		Short: "Spawn a program suspended and print its pid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.device()
			if err != nil {
				return err
			}
			defer d.Close()

			pid, err := d.SpawnArgs(args[0], args[1:]...)
			if err != nil {
				return err
			}
			if resume {
				if err := d.Resume(pid); err != nil {
					return err
				}
			}
			if a.asJSON {
				return a.emit(map[string]uint{"pid": pid}, nil)
			}
			fmt.Fprintln(a.out, pid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "resume the process after spawning it")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) killCommand() *cobra.Command {
	return a.pidCommand("kill", "Kill a process", (*fridabind.Device).Kill)
}

func (a *app) resumeCommand() *cobra.Command {
	return a.pidCommand("resume", "Resume a spawned process", (*fridabind.Device).Resume)
}

func (a *app) pidCommand(use, short string, op func(*fridabind.Device, uint) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}
			d, err := a.device()
			if err != nil {
				return err
			}
			defer d.Close()
			return op(d, pid)
		},
	}
}
