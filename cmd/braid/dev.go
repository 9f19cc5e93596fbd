package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/braid-dev/braid/internal/config"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the app in development mode",
		Long: `Run the project's app with the dev loop enabled.

Route registrations live in the app's own Go code, so the app itself is
what runs; this command launches it with BRAID_DEV set. With the dev
loop on, the app watches the route directory, rebuilds the tree on
change, and pushes reloads and build errors to connected browsers.

Examples:
  braid dev
  braid dev --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from braid.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from braid.json)")

	return cmd
}

func runDev(ctx context.Context, port int, host string) error {
	if _, err := exec.LookPath("go"); err != nil {
		errorMsg("Go is not installed or not in PATH")
		info("Install Go from https://go.dev/dl/")
		return err
	}

	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if err := cfg.CheckRoutes(); err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	printBanner()
	info("dev · %s", cfg.URL())
	fmt.Println()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n  Shutting down...")
		cancel()
	}()

	app := exec.CommandContext(ctx, "go", "run", ".")
	app.Dir = cfg.Dir()
	app.Stdout = os.Stdout
	app.Stderr = os.Stderr
	app.Env = append(os.Environ(),
		"BRAID_DEV=1",
		config.PortEnv+"="+strconv.Itoa(cfg.Server.Port),
		config.HostEnv+"="+cfg.Server.Host,
	)

	if err := app.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
