// Package cli implements the fridabind command line tool.
package cli

import (
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/dsjlzh/fridabind"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type app struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	deviceID string
	usb      bool
	remote   bool
	host     string
	asJSON   bool
	logLevel string

	dm *fridabind.DeviceManager
}

// NewCommand builds the root command. Callers register a driver before
// executing it.
func NewCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "fridabind",
		Short:         "Inspect and instrument processes with frida",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.deviceID, "device", "D", "", "connect to the device with the given id")
	flags.BoolVarP(&a.usb, "usb", "U", false, "connect to a USB device")
	flags.BoolVarP(&a.remote, "remote", "R", false, "connect to the default remote device")
	flags.StringVarP(&a.host, "host", "H", "", "connect to a remote frida-server at host[:port]")
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides FRIDABIND_LOG_LEVEL")

	root.AddCommand(
		a.versionCommand(),
		a.devicesCommand(),
		a.psCommand(),
		a.appsCommand(),
		a.spawnCommand(),
		a.killCommand(),
		a.resumeCommand(),
		a.attachCommand(),
	)
	for _, c := range root.Commands() {
		if c.RunE != nil {
			c.RunE = a.closing(c.RunE)
		}
	}
	return root
}

// Main runs the tool against the process arguments and returns the exit
// code.
func Main() int {
	cmd := NewCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		logrus.New().WithError(err).Error("fridabind failed")
		return 1
	}
	return 0
}

func (a *app) configure() error {
	cfg, err := fridabind.LoadConfig()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	fridabind.Logger().SetOutput(a.errOut)
	return fridabind.Configure(cfg)
}

// closing releases the device manager once fn returns, failed or not.
func (a *app) closing(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) close() {
	if a.dm != nil {
		a.dm.Close()
		a.dm = nil
	}
}

func (a *app) deviceManager() (*fridabind.DeviceManager, error) {
	if a.dm == nil {
		dm, err := fridabind.NewDeviceManager()
		if err != nil {
			return nil, err
		}
		a.dm = dm
	}
	return a.dm, nil
}

// device resolves the device selected by the global flags. The local device
// is the default.
func (a *app) device() (*fridabind.Device, error) {
	dm, err := a.deviceManager()
	if err != nil {
		return nil, err
	}
	var d *fridabind.Device
	switch {
	case a.deviceID != "":
		d, err = dm.GetDeviceByID(a.deviceID, 0)
	case a.host != "":
		d, err = dm.AddRemoteDevice(a.host, nil)
	case a.usb:
		d, err = dm.GetUSBDevice()
	case a.remote:
		d, err = dm.GetRemoteDevice()
	default:
		d, err = dm.GetLocalDevice()
	}
	if err != nil {
		return nil, xerrors.Errorf("select device: %w", err)
	}
	return d, nil
}
