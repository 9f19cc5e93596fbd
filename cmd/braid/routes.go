package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/braid-dev/braid/internal/config"
	"github.com/braid-dev/braid/pkg/router"
)

func routesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the project's route layout",
		Long: `Scan the route directory and print every discovered route with its
module files. Registrations are not checked; this shows the layout the
files alone define.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}

// routeEntry is the JSON shape for one scanned route.
type routeEntry struct {
	Path   string   `json:"path"`
	Server []string `json:"server,omitempty"`
	Client []string `json:"client,omitempty"`
}

func runRoutes(asJSON bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if err := cfg.CheckRoutes(); err != nil {
		return err
	}

	scanned, err := router.Scan(os.DirFS(cfg.RoutesPath()))
	if err != nil {
		return err
	}

	var entries []routeEntry
	for _, route := range scanned {
		if len(route.ServerFiles) == 0 && len(route.ClientFiles) == 0 {
			continue
		}
		entries = append(entries, routeEntry{
			Path:   route.Path,
			Server: route.ServerFiles,
			Client: route.ClientFiles,
		})
	}

	if asJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		info("No routes in %s", cfg.Routes)
		return nil
	}

	width := 0
	for _, e := range entries {
		if len(e.Path) > width {
			width = len(e.Path)
		}
	}
	for _, e := range entries {
		var modules []string
		if len(e.Server) > 0 {
			modules = append(modules, "server")
		}
		if len(e.Client) > 0 {
			modules = append(modules, "client")
		}
		fmt.Printf("  %-*s  %s\n", width, e.Path, strings.Join(modules, "+"))
	}
	success("%d routes", len(entries))
	return nil
}
