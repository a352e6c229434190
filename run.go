package main

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/ledmotion/api"
	"github.com/matt-g-everett/ledmotion/stream"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play the scene and stream frames to the LED receiver",
	RunE: func(cmd *cobra.Command, _ []string) error {
		static, _ := cmd.Flags().GetString("static")
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		c := a.config
		options := mqtt.NewClientOptions().
			AddBroker(c.Mqtt.URL).
			SetClientID(c.Mqtt.ClientID).
			SetUsername(c.Mqtt.Username).
			SetPassword(c.Mqtt.Password).
			SetKeepAlive(30 * time.Second).
			SetPingTimeout(5 * time.Second).
			SetOnConnectHandler(a.handleOnConnect)
		client := mqtt.NewClient(options)

		streamer := stream.NewStreamer(client, c.Mqtt.Topics.Stream, a.strip, a.log.With("component", "streamer"))
		if err := a.setupEngine(nil, streamer); err != nil {
			return err
		}
		a.calibration = stream.NewCalibration(a.engine, a.strip, client, c.Mqtt.Topics.CalibrateClient,
			a.log.With("component", "calibration"))

		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to connect to %s: %w", c.Mqtt.URL, token.Error())
		}
		defer client.Disconnect(250)

		ctrl := stream.NewController(a.engine, a.cycleIDs(), c.Cycle.Interval, c.Cycle.Fade, a.calibration,
			a.log.With("component", "controller"))
		ctrl.Start()

		server := api.NewApi(a.engine,
			api.WithGatherer(a.registry),
			api.WithCycler(ctrl),
			api.WithCalibrator(a.calibration),
			api.WithStatic(static),
			api.WithLogger(a.log.With("component", "api")))
		return a.serve(cmd.Context(), ctrl, server, streamer.Run)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("static", "client/dist", "Directory of static files served by the API.")
}
