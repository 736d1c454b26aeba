package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mhartman/chirpwidget/internal/cache"
	"github.com/mhartman/chirpwidget/internal/config"
	"github.com/mhartman/chirpwidget/internal/debuglog"
	"github.com/mhartman/chirpwidget/internal/format"
	"github.com/mhartman/chirpwidget/internal/timeline"
	"github.com/mhartman/chirpwidget/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	handleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	timeStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#94A3B8"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171"))
)

type cliOptions struct {
	configPath string
	handle     string
	cachePath  string
	noCache    bool
	logLevel   string
}

func main() {
	defer debuglog.Close()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "chirpwidget",
		Short:         "Cached microblog feed widget",
		Long:          "Fetches an account's recent posts, formats them for display and caches the result as a single JSON document.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&opts.handle, "handle", "", "account handle (overrides config)")
	root.PersistentFlags().StringVar(&opts.cachePath, "cache", "", "path to cache file (overrides config)")
	root.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "ignore the cache and refetch")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, off")

	root.AddCommand(newFetchCmd(opts), newViewCmd(opts), newConfigCmd(), newVersionCmd())
	return root
}

func newFetchCmd(opts *cliOptions) *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the feed and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(opts)
			if err != nil {
				return err
			}

			result := svc.Feed()

			if asText {
				fmt.Fprint(cmd.OutOrStdout(), renderText(result))
				return nil
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "render styled text instead of the JSON document")
	return cmd
}

func newViewCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse the feed interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(opts)
			if err != nil {
				return err
			}

			p := tea.NewProgram(tui.NewApp(svc), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				home, _ := os.UserHomeDir()
				path = filepath.Join(home, ".config", "chirpwidget", "config.toml")
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "where to write the config file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chirpwidget %s\n", Version)
		},
	}
}

func buildService(opts *cliOptions) (*timeline.Service, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.handle != "" {
		cfg.Account.Handle = opts.handle
	}
	if opts.cachePath != "" {
		cfg.Cache.Path = opts.cachePath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if cfg.Account.Handle == "" {
		return nil, fmt.Errorf("no account handle configured; set [account] handle or pass --handle")
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := timeline.NewService(cfg, cache.NewStore(cfg.Cache.Path), fetcher)
	if err != nil {
		return nil, err
	}

	if opts.noCache {
		svc.SetForceRefresh(true)
	}

	return svc, nil
}

func newFetcher(cfg *config.Config) (timeline.Fetcher, error) {
	switch cfg.Feed.Source {
	case config.SourceAPI:
		if !cfg.Auth.Complete() {
			return nil, fmt.Errorf(`the api source needs all four [auth] credentials; fill them in or switch to source = "rss"`)
		}
		return timeline.NewAPIFetcher(timeline.Credentials{
			ConsumerKey:    cfg.Auth.ConsumerKey,
			ConsumerSecret: cfg.Auth.ConsumerSecret,
			AccessToken:    cfg.Auth.AccessToken,
			AccessSecret:   cfg.Auth.AccessSecret,
		}, cfg.Feed.HTTPTimeout), nil
	case config.SourceRSS:
		return timeline.NewRSSFetcher(cfg.Feed.RSSURL), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}

func renderText(result *timeline.FeedResult) string {
	var b strings.Builder

	b.WriteString(handleStyle.Render("@"+result.Handle) + "  " + timeStyle.Render(result.Link) + "\n\n")

	if result.Err.IsSet() {
		b.WriteString(errStyle.Render(string(result.Err)) + "\n")
		return b.String()
	}

	for _, post := range result.Posts {
		b.WriteString(format.AnchorsToMarkdown(post.Description) + "\n")
		b.WriteString(timeStyle.Render(post.DisplayTime) + "\n\n")
	}

	return b.String()
}
