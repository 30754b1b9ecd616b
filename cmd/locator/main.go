package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-locator/internal/db"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/logger"
	"github.com/joeblew999/plat-locator/internal/server"
)

// Options defines all CLI flags and env vars for the locator server.
// Flags: --host, --port, --data-dir, --web-dir, --settings, --source, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host           string `doc:"Host to bind to" default:"0.0.0.0"`
	Port           int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir        string `doc:"Directory for location sources and the DuckDB file" default:".data"`
	WebDir         string `doc:"Path to web/ directory" default:"web"`
	Settings       string `doc:"Widget settings file (YAML, JSON or TOML)"`
	Source         string `doc:"Default location source: a file in <data-dir>/sources, a path, or duckdb:<query>"`
	LogLevel       string `doc:"Log level: debug, info, warn, error" default:"info"`
	RedisAddr      string `doc:"Redis address for the search cache; memory when empty"`
	SearchCacheTTL string `doc:"How long geocoding results are cached" default:"24h"`
	GoogleKey      string `doc:"Google Maps / Geocoding API key"`
	MapboxToken    string `doc:"Mapbox access token"`
}

func newServer(opts *Options, log *zap.Logger) (*server.Server, error) {
	ttl, err := time.ParseDuration(opts.SearchCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("search-cache-ttl: %w", err)
	}
	return server.New(server.Config{
		Host:           opts.Host,
		Port:           fmt.Sprintf("%d", opts.Port),
		DataDir:        opts.DataDir,
		WebDir:         opts.WebDir,
		SettingsFile:   opts.Settings,
		Source:         opts.Source,
		Logger:         log,
		RedisAddr:      opts.RedisAddr,
		SearchCacheTTL: ttl,
		GoogleKey:      opts.GoogleKey,
		MapboxToken:    opts.MapboxToken,
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log, err := logger.New(opts.LogLevel)
		if err != nil {
			fatal("Error creating logger: %v", err)
		}
		var httpServer *http.Server

		hooks.OnStart(func() {
			defer log.Sync()
			srv, err := newServer(opts, log)
			if err != nil {
				log.Fatal("server setup failed", zap.Error(err))
			}
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-locator server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Source:  %s\n", opts.Source)
			fmt.Println()
			fmt.Printf("  Locator: %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "locator"
	cli.Root().Short = "Store locator: locations, search and server-driven map widgets"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts, zap.NewNop())
			if err != nil {
				fatal("Error creating server: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// locations subcommand: print a source ordered by distance
	locationsCmd := &cobra.Command{
		Use:   "locations",
		Short: "List the locations of --source sorted by distance from --lat/--lon",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			filters, _ := cmd.Flags().GetStringSlice("filter")

			loader := location.Loader{
				Sources: location.NewSources(opts.DataDir),
				DB: func() (*sql.DB, error) {
					return db.Get(db.Config{DataDir: opts.DataDir, DBName: "locations"})
				},
			}
			defer db.Close()

			records, err := loader.Load(cmd.Context(), opts.Source)
			if err != nil {
				fatal("Error loading locations: %v", err)
			}
			store := location.NewStore(nil, nil)
			store.Replace(location.Parse(records))
			store.SetFilters(filters)
			store.UpdateDistances(geo.Position{Latitude: lat, Longitude: lon})

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tLATITUDE\tLONGITUDE\tDISTANCE\tNAME")
			for _, r := range store.ApplyFilters() {
				fmt.Fprintf(w, "%s\t%s\t%.5f\t%.5f\t%.2f km\t%s\n",
					r.ID, strings.Join(r.Tags(), ","), r.Latitude, r.Longitude, r.Distance,
					location.Stringify(r.Fields["name"]))
			}
			w.Flush()
		}),
	}
	locationsCmd.Flags().Float64("lat", 0, "Reference latitude")
	locationsCmd.Flags().Float64("lon", 0, "Reference longitude")
	locationsCmd.Flags().StringSlice("filter", nil, "Filter set (comma separated)")
	cli.Root().AddCommand(locationsCmd)

	cli.Run()
}
