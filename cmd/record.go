package cmd

import (
	"fmt"

	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/settings"
	"github.com/spf13/cobra"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <on|off>",
		Short: "Turn session recording on or off",
		Long: `Turn session recording on or off.

While recording is off the daemon keeps polling but writes no sessions.
Turning it off closes every open session; turning it on opens sessions for
the processes currently running. A running daemon picks the change up
immediately.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on", "true":
				enabled = true
			case "off", "false":
			default:
				return invalidInput("recording state", args[0], "expected on or off")
			}

			if err := settings.Open("").Set(settings.KeyRecording, enabled); err != nil {
				return err
			}

			state := "off"
			if enabled {
				state = "on"
			}
			p := pretty(cmd)
			p.Success(fmt.Sprintf("Recording %s", state))
			client, err := daemon.Connect()
			if err != nil {
				p.InfoPretty("The daemon is not running; the setting applies when it starts.")
				return nil
			}
			return client.Close()
		},
	}
	return cmd
}
