package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filmpress/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the filmpress daemon in the foreground",
		Long: "Run the scan-and-transcode daemon in the foreground until SIGINT, SIGTERM,\n" +
			"or a stop request arrives on the control socket.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}

	cmd.AddCommand(newDaemonRunNowCommand(ctx))
	cmd.AddCommand(newDaemonStopCommand(ctx))
	return cmd
}

func newDaemonRunNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run-now",
		Short: "Ask the running daemon to start a scan cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Run()
				if err != nil {
					return err
				}
				if resp.Triggered {
					fmt.Fprintln(cmd.OutOrStdout(), "Scan cycle scheduled")
					return nil
				}
				if resp.Message != "" {
					return errors.New(resp.Message)
				}
				return errors.New("scan cycle was not scheduled")
			})
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialOptional()
			if err != nil {
				return err
			}
			if client == nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			resp, err := client.Stop()
			if err != nil {
				return err
			}
			if !resp.Stopping {
				return errors.New("daemon did not acknowledge the stop request")
			}
			fmt.Fprintln(stdout, "Shutdown requested")
			return nil
		},
	}
}
