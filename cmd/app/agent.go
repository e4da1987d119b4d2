package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shiptrack/cmd"
	"shiptrack/internal/agent"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/gps"

	"github.com/spf13/cobra"
)

func newAgentCommand() *cobra.Command {
	var (
		url, token, code, from, to string
		steps                      int
		interval, delay            time.Duration
	)

	command := &cobra.Command{
		Use:   "agent",
		Short: "Simulate a delivery agent streaming its position",
		Long: `Connects to the streaming endpoint as an agent and publishes positions
along a straight route until interrupted or until position acquisition fails.`,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			logger := cmd.NewLogger(cfg.LogLevel)

			start, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			source, err := gps.NewSimulator(start, end, steps, delay)
			if err != nil {
				return err
			}

			runner, err := agent.NewRunner(agent.Config{
				URL:          url,
				Token:        token,
				TrackingCode: shipment.TrackingCode(code),
				Session:      gps.Options{Interval: interval},
			}, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runner.Run(ctx, source)
		},
	}

	flags := command.Flags()
	flags.StringVar(&url, "url", "ws://localhost:8082/ws", "streaming endpoint")
	flags.StringVar(&token, "token", "", "agent bearer token")
	flags.StringVar(&code, "code", "", "tracking code of the claimed shipment")
	flags.StringVar(&from, "from", "52.5200,13.4050", "route start as lat,lng")
	flags.StringVar(&to, "to", "53.5511,9.9937", "route end as lat,lng")
	flags.IntVar(&steps, "steps", 100, "fixes between start and end")
	flags.DurationVar(&interval, "interval", 2*time.Second, "pause between fixes")
	flags.DurationVar(&delay, "delay", 0, "simulated time to acquire each fix")
	_ = command.MarkFlagRequired("token")
	_ = command.MarkFlagRequired("code")
	return command
}

func parsePoint(s string) (kernel.GeoPoint, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return kernel.GeoPoint{}, fmt.Errorf("%q is not lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return kernel.GeoPoint{}, err
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return kernel.GeoPoint{}, err
	}
	return kernel.NewGeoPoint(lat, lng)
}
