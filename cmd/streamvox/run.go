package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasmsqt/StreamVox/internal/session"
)

const stopTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture from an input to an output without the tray",
	Long:  `Starts a capture session with the given devices and keeps it running until interrupted. SIGHUP reloads the device list without touching the running session.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")

		svc, err := newServices(cmd)
		if err != nil {
			return err
		}
		defer svc.close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		svc.serveMetrics(ctx)

		return runSession(ctx, svc, input, output)
	},
}

func init() {
	runCmd.Flags().String("input", "", "Input device id (see \"streamvox devices\")")
	runCmd.Flags().String("output", "", "Output device id (see \"streamvox devices\")")
	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("output")
}

func runSession(ctx context.Context, svc *services, input, output string) error {
	log := svc.log
	ctrl := svc.ctrl

	if _, err := ctrl.RefreshDevices(ctx); err != nil {
		return err
	}
	ctrl.SelectInput(input)
	ctrl.SelectOutput(output)

	if err := ctrl.StartCapture(ctx); err != nil {
		return err
	}
	log.Info().Str("input", input).Str("output", output).Msg("Capturing, press Ctrl+C to stop")

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			go func() {
				list, err := ctrl.RescanDevices(context.Background())
				if err != nil {
					if !errors.Is(err, session.ErrClosed) {
						log.Warn().Err(err).Msg("Device reload failed")
					}
					return
				}
				log.Info().Int("inputs", len(list.Inputs)).Int("outputs", len(list.Outputs)).Msg("Devices reloaded")
			}()
		case <-ctx.Done():
			log.Info().Msg("Shutting down...")
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if _, err := ctrl.StopCapture(stopCtx); err != nil {
				return fmt.Errorf("stop capture: %w", err)
			}
			return nil
		}
	}
}
