package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"portfolio.siakou.dev/internal/config"
	"portfolio.siakou.dev/internal/database"
	"portfolio.siakou.dev/internal/portfolio"
	porthttp "portfolio.siakou.dev/internal/portfolio/http"
	"portfolio.siakou.dev/internal/portfolio/sitemap"
	"portfolio.siakou.dev/internal/project"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

var (
	rootCmd = &cobra.Command{
		Use:               "portfolio",
		Short:             "Portfolio API server and utilities",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Run the API server",
		RunE:  runServer,
	}
	projectsCmd = &cobra.Command{
		Use:   "projects",
		Short: "List projects from GitHub as a table",
		RunE:  runProjects,
	}
	sitemapCmd = &cobra.Command{
		Use:   "sitemap",
		Short: "Generate sitemap.xml from the GitHub repositories",
		RunE:  runSitemap,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}
	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Revert all applied migrations",
		RunE:  runMigrateDown,
	}

	cfg = config.New()

	// Flags
	cfgFile  string
	addr     string
	output   string
	search   string
	category string
	sortKey  string
	archived bool
	limit    int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml). Environment variables take precedence")
	serverCmd.Flags().StringVar(&addr, "addr", "", "Address to run the server on (host:port). If empty, uses HOST and PORT environment variables")
	sitemapCmd.Flags().StringVar(&output, "output", "", "Sitemap output path. If empty, uses SITEMAP_PATH or public/sitemap.xml")
	projectsCmd.Flags().StringVar(&search, "search", "", "Case-insensitive search over title, description and tech stack")
	projectsCmd.Flags().StringVar(&category, "category", string(project.CategoryAll), "Category filter")
	projectsCmd.Flags().StringVar(&sortKey, "sort", string(project.SortStars), "Sort key: stars, forks, updated or created")
	projectsCmd.Flags().BoolVar(&archived, "archived", false, "Include archived repositories")
	projectsCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of projects to print (0 for all)")
	migrateCmd.AddCommand(upCmd, downCmd)
	rootCmd.AddCommand(serverCmd, projectsCmd, sitemapCmd, migrateCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := cfg.Load(cfgFile); err != nil {
		return err
	}
	config.SetupLog(cfg)
	cfg.Watch()
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := config.SetupTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer shutdownTelemetry()

	srv, err := porthttp.NewServerForConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := srv.Close(); cerr != nil {
			slog.Error("Error during shutdown", "error", cerr)
		}
	}()

	// Samples are served when the first load fails; the server still starts.
	_ = srv.Portfolio().Catalog().Load(ctx)

	finalAddr := addr
	if finalAddr == "" {
		finalAddr = cfg.GetAddr()
	}

	if err := srv.ListenAndServe(ctx, finalAddr); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sk, err := project.ParseSortKey(sortKey)
	if err != nil {
		return err
	}
	p, err := portfolio.NewForConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	catalog := p.Catalog()
	if err := catalog.Load(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), project.FetchErrorMessage)
	}
	res := catalog.Query(project.Query{
		Search:       search,
		Category:     project.Category(category),
		Sort:         sk,
		ShowArchived: archived,
		Limit:        limit,
	})
	return printProjects(cmd.OutOrStdout(), res)
}

func printProjects(w io.Writer, res project.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCATEGORY\tDIFFICULTY\tSTARS\tFORKS\tUPDATED\tTECH")
	for _, p := range res.Projects {
		updated := "-"
		if !p.LastUpdate.IsZero() {
			updated = p.LastUpdate.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.Title, p.Category, p.Difficulty, p.Stars, p.Forks, updated, strings.Join(p.TechStack, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.HasMore {
		_, err := fmt.Fprintf(w, "... %d more\n", res.Total-len(res.Projects))
		return err
	}
	return nil
}

func runSitemap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := portfolio.NewForConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	path := output
	if path == "" {
		path = cfg.GetSitemapPath()
	}
	set := sitemap.Generate(ctx, p.GitHub(), p.Username(), cfg.GetSiteURL())
	return sitemap.WriteFile(path, set)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	mg, err := database.NewMigratorForConfig(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer mg.Close()

	return mg.Up()
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	mg, err := database.NewMigratorForConfig(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer mg.Close()

	return mg.Down()
}
