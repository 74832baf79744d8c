package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plausctl/internal/api"
	"plausctl/internal/audit"
	"plausctl/internal/cache"
	"plausctl/internal/config"
	"plausctl/internal/export"
	"plausctl/internal/query"
	"plausctl/internal/seo"
	"plausctl/internal/site"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "plausctl",
		Short: "CLI for querying Plausible Analytics",
		Long: `plausctl builds, validates, and executes Plausible Analytics queries,
caches responses locally, and grades the results for SEO review.

Examples:
  plausctl config set --api-key <key> --site example.com
  plausctl query run --metrics visitors,pageviews --date-range 7d
  plausctl seo sources --date-range 30d
  plausctl cache info`,
		Version: version,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage global configuration",
		Long:  "Configure the API key, default site, and instance URL",
	}

	siteCmd = &cobra.Command{
		Use:   "site",
		Short: "Manage site profiles",
		Long:  "Create, list, delete, and switch between saved site profiles",
	}

	sitesCmd = &cobra.Command{
		Use:   "sites",
		Short: "List sites from the API",
		Long:  "List every site the configured API key can read",
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Execute analytics queries",
		Long:  "Build and execute Plausible queries with validation and caching",
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
		Long:  "Inspect, clear, and prune the on-disk response cache",
	}

	resultsCmd = &cobra.Command{
		Use:   "results",
		Short: "Manage archived results",
		Long:  "Inspect the local DuckDB archive of past query runs",
	}

	seoCmd = &cobra.Command{
		Use:   "seo",
		Short: "SEO analysis helpers",
		Long:  "Graded source/page reports, period comparisons, and content decay detection",
	}
)

func init() {
	rootCmd.PersistentFlags().String("site", "", "Site domain to query (overrides the configured default)")

	// Config subcommands
	configSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Set configuration values",
		Run:   configSetHandler,
	}
	configSetCmd.Flags().String("api-key", "", "Plausible API key")
	configSetCmd.Flags().String("site", "", "Default site domain")
	configSetCmd.Flags().String("base-url", "", "Base URL for self-hosted instances")

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run:   configShowHandler,
	}
	configCmd.AddCommand(configSetCmd, configShowCmd)

	// Site profile subcommands
	siteAddCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a site profile",
		Args:  cobra.ExactArgs(1),
		Run:   siteAddHandler,
	}
	siteAddCmd.Flags().String("domain", "", "Site domain (required)")
	siteAddCmd.Flags().String("api-key", "", "API key for this site (required)")
	siteAddCmd.MarkFlagRequired("domain")
	siteAddCmd.MarkFlagRequired("api-key")

	siteCmd.AddCommand(siteAddCmd,
		&cobra.Command{Use: "list", Short: "List site profiles", Run: siteListHandler},
		&cobra.Command{Use: "use [name]", Short: "Set the active site profile", Args: cobra.ExactArgs(1), Run: siteUseHandler},
		&cobra.Command{Use: "remove [name]", Short: "Delete a site profile", Args: cobra.ExactArgs(1), Run: siteRemoveHandler},
	)

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sites accessible to the API key",
		Run:   sitesListHandler,
	})

	// Query subcommands
	queryRunCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a query",
		Run:   queryRunHandler,
	}
	queryRunCmd.Flags().StringSlice("metrics", []string{"visitors"}, "Metric names (comma-separated)")
	queryRunCmd.Flags().StringSlice("dimensions", []string{}, "Dimension names (comma-separated)")
	queryRunCmd.Flags().String("date-range", "7d", "Relative range (7d, month, ...) or start,end dates")
	queryRunCmd.Flags().StringArray("filter", []string{}, "Filter in the form 'operator:dimension:value1|value2' (repeatable)")
	queryRunCmd.Flags().Int("limit", 0, "Pagination limit (required with dimensions)")
	queryRunCmd.Flags().Int("offset", 0, "Pagination offset")
	queryRunCmd.Flags().String("order-by", "", "Order by field (prefix with - for descending)")
	queryRunCmd.Flags().Bool("no-cache", false, "Skip the cache and force a fresh query")
	queryRunCmd.Flags().Duration("timeout", query.DefaultTimeout, "Remote call timeout")
	queryRunCmd.Flags().String("output", "table", "Output format: table or json")
	queryRunCmd.Flags().Int("max-rows", 50, "Maximum rows to display in table output")
	queryRunCmd.Flags().String("export-csv", "", "Also write results to this CSV file")
	queryRunCmd.Flags().String("export-json", "", "Also write results to this JSON file")
	queryRunCmd.Flags().Bool("archive", false, "Also store results in the local DuckDB archive")
	queryCmd.AddCommand(queryRunCmd)

	// Cache subcommands
	cacheCmd.AddCommand(
		&cobra.Command{Use: "info", Short: "Show cache entry count and location", Run: cacheInfoHandler},
		&cobra.Command{Use: "clear", Short: "Remove all cache entries", Run: cacheClearHandler},
		&cobra.Command{Use: "prune", Short: "Remove expired cache entries", Run: cachePruneHandler},
	)

	// Results subcommands
	resultsCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show archive totals",
		Run:   resultsStatsHandler,
	})

	// SEO subcommands
	seoSourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Grade top traffic sources",
		Run:   seoSourcesHandler,
	}
	seoSourcesCmd.Flags().String("date-range", "30d", "Date range")
	seoSourcesCmd.Flags().Int("limit", 20, "Number of sources")

	seoPagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "Classify top entry pages",
		Run:   seoPagesHandler,
	}
	seoPagesCmd.Flags().String("date-range", "30d", "Date range")
	seoPagesCmd.Flags().Int("limit", 20, "Number of pages")

	seoCompareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two periods metric by metric",
		Run:   seoCompareHandler,
	}
	seoCompareCmd.Flags().StringSlice("metrics", []string{"visitors", "pageviews"}, "Metrics to compare")
	seoCompareCmd.Flags().String("current", "30d", "Current period date range")
	seoCompareCmd.Flags().String("previous", "", "Previous period date range as start,end dates (required)")
	seoCompareCmd.MarkFlagRequired("previous")

	seoDecayCmd := &cobra.Command{
		Use:   "decay",
		Short: "Detect decaying pages",
		Run:   seoDecayHandler,
	}
	seoDecayCmd.Flags().String("baseline", "", "Baseline period as start,end dates (required)")
	seoDecayCmd.Flags().String("recent", "30d", "Recent period date range")
	seoDecayCmd.Flags().Float64("threshold", seo.DefaultDecayThreshold, "Minimum drop percent that counts as decay")
	seoDecayCmd.Flags().Int("limit", 100, "Pages per period to fetch")
	seoDecayCmd.MarkFlagRequired("baseline")

	seoCmd.AddCommand(seoSourcesCmd, seoPagesCmd, seoCompareCmd, seoDecayCmd)

	rootCmd.AddCommand(configCmd, siteCmd, sitesCmd, queryCmd, cacheCmd, resultsCmd, seoCmd)

	// Common flags shared by all SEO handlers.
	for _, c := range []*cobra.Command{seoSourcesCmd, seoPagesCmd, seoCompareCmd, seoDecayCmd} {
		c.Flags().Bool("no-cache", false, "Skip the cache and force fresh queries")
		c.Flags().Duration("timeout", query.DefaultTimeout, "Remote call timeout")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// --- wiring helpers ---

func configManager() *config.Manager {
	mgr, err := config.DefaultManager()
	if err != nil {
		fail(err)
	}
	return mgr
}

// resolveSettings resolves site and credentials: active site profile
// first, then config file / environment, then the --site flag on top.
func resolveSettings(cmd *cobra.Command) query.Settings {
	mgr := configManager()
	cfg, err := mgr.Load()
	if err != nil {
		fail(err)
	}

	settings := query.Settings{
		SiteID:  cfg.SiteID,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	}

	profile, err := site.NewManager(mgr).Active()
	if err == nil && profile != nil {
		settings.SiteID = profile.Domain
		if profile.APIKey != "" {
			settings.APIKey = profile.APIKey
		}
	}

	if flagSite, _ := cmd.Flags().GetString("site"); flagSite != "" {
		settings.SiteID = flagSite
	}
	return settings
}

func buildExecutor(cmd *cobra.Command) *query.Executor {
	settings := resolveSettings(cmd)

	cacheDir, err := cache.DefaultDir()
	if err != nil {
		fail(err)
	}
	store, err := cache.New(cacheDir, nil)
	if err != nil {
		// A broken cache directory degrades to uncached execution.
		store = nil
	}

	auditPath, err := audit.DefaultPath()
	trail := audit.Discard()
	if err == nil {
		trail = audit.New(auditPath)
	}

	return query.NewExecutor(settings, store, trail)
}

func execOptions(cmd *cobra.Command) query.Options {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return query.Options{NoCache: noCache, Timeout: timeout}
}

// parseDateRange accepts a relative token or "start,end".
func parseDateRange(s string) (query.DateRange, error) {
	if strings.Contains(s, ",") {
		parts := strings.SplitN(s, ",", 2)
		return query.DateRange{Start: strings.TrimSpace(parts[0]), End: strings.TrimSpace(parts[1])}, nil
	}
	if !query.IsShortcut(s) {
		return query.DateRange{}, fmt.Errorf("unknown date range %q (valid: %s, or start,end dates)", s, strings.Join(query.RangeShortcuts, ", "))
	}
	return query.DateRange{Shortcut: s}, nil
}

// parseFilter parses 'operator:dimension:value1|value2'.
func parseFilter(s string) (query.Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return query.Filter{}, fmt.Errorf("filter %q must have the form 'operator:dimension:value1|value2'", s)
	}
	values := strings.Split(parts[2], "|")
	return query.NewLeaf(parts[0], parts[1], values...), nil
}

func parseOrderBy(s string) []query.OrderBy {
	if s == "" {
		return nil
	}
	direction := "asc"
	if strings.HasPrefix(s, "-") {
		direction = "desc"
		s = s[1:]
	}
	return []query.OrderBy{{Field: s, Direction: direction}}
}

func fail(err error) {
	var failure *query.Failure
	switch f := err.(type) {
	case *query.ValidationFailure:
		for _, v := range f.Violations {
			printViolation(v.Code, v.Message, v.Suggestion)
		}
		os.Exit(1)
	case *query.ConfigFailure:
		failure = &f.Failure
	case *query.NetworkFailure:
		failure = &f.Failure
	case *query.UpstreamFailure:
		failure = &f.Failure
	}
	if failure != nil {
		printViolation(failure.Code, failure.Message, failure.Suggestion)
		if failure.Details != "" {
			fmt.Printf("   details: %s\n", failure.Details)
		}
		os.Exit(1)
	}
	fmt.Printf("❌ %v\n", err)
	os.Exit(1)
}

func printViolation(code, message, suggestion string) {
	fmt.Printf("❌ [%s] %s\n", code, message)
	if suggestion != "" {
		fmt.Printf("   suggestion: %s\n", suggestion)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(data))
}

// --- config handlers ---

func configSetHandler(cmd *cobra.Command, args []string) {
	mgr := configManager()
	cfg, err := mgr.Load()
	if err != nil {
		fail(err)
	}

	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v, _ := cmd.Flags().GetString("site"); v != "" {
		cfg.SiteID = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}

	if err := mgr.Save(cfg); err != nil {
		fail(err)
	}
	fmt.Println("✅ Configuration saved")
}

func configShowHandler(cmd *cobra.Command, args []string) {
	mgr := configManager()
	cfg, err := mgr.Load()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Config file:  %s\n", mgr.ConfigPath())
	fmt.Printf("Default site: %s\n", orNone(cfg.SiteID))
	fmt.Printf("Base URL:     %s\n", orDefault(cfg.BaseURL, api.DefaultBaseURL))
	fmt.Printf("API key:      %s\n", maskKey(cfg.APIKey))
	fmt.Printf("Active site:  %s\n", orNone(cfg.ActiveSite))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback + " (default)"
	}
	return s
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// --- site profile handlers ---

func siteAddHandler(cmd *cobra.Command, args []string) {
	domain, _ := cmd.Flags().GetString("domain")
	apiKey, _ := cmd.Flags().GetString("api-key")

	mgr := site.NewManager(configManager())
	if err := mgr.Create(args[0], domain, apiKey); err != nil {
		fail(err)
	}
	fmt.Printf("✅ Site profile '%s' created for %s\n", args[0], domain)
}

func siteListHandler(cmd *cobra.Command, args []string) {
	cfgMgr := configManager()
	profiles, err := site.NewManager(cfgMgr).List()
	if err != nil {
		fail(err)
	}
	if len(profiles) == 0 {
		fmt.Println("No site profiles. Create one with 'plausctl site add'")
		return
	}

	cfg, _ := cfgMgr.Load()
	for _, p := range profiles {
		marker := " "
		if cfg != nil && cfg.ActiveSite == p.Name {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-30s last used %s\n", marker, p.Name, p.Domain, p.LastUsed.Format("2006-01-02"))
	}
}

func siteUseHandler(cmd *cobra.Command, args []string) {
	if err := site.NewManager(configManager()).Use(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("✅ Active site profile set to '%s'\n", args[0])
}

func siteRemoveHandler(cmd *cobra.Command, args []string) {
	if err := site.NewManager(configManager()).Delete(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("✅ Site profile '%s' deleted\n", args[0])
}

func sitesListHandler(cmd *cobra.Command, args []string) {
	settings := resolveSettings(cmd)
	if settings.APIKey == "" {
		fmt.Println("❌ No API key configured. Run 'plausctl config set --api-key <key>' first")
		os.Exit(1)
	}

	client := api.NewClient(settings.BaseURL, settings.APIKey)
	sites, err := client.ListSites(context.Background())
	if err != nil {
		fail(err)
	}

	if len(sites) == 0 {
		fmt.Println("No sites accessible to this API key")
		return
	}
	for _, s := range sites {
		fmt.Printf("%-40s %s\n", s.Domain, s.Timezone)
	}
}

// --- query handlers ---

func queryRunHandler(cmd *cobra.Command, args []string) {
	metrics, _ := cmd.Flags().GetStringSlice("metrics")
	dimensions, _ := cmd.Flags().GetStringSlice("dimensions")
	rangeFlag, _ := cmd.Flags().GetString("date-range")
	filterFlags, _ := cmd.Flags().GetStringArray("filter")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	orderBy, _ := cmd.Flags().GetString("order-by")

	dateRange, err := parseDateRange(rangeFlag)
	if err != nil {
		fail(err)
	}

	q := &query.Query{
		Metrics:    metrics,
		DateRange:  dateRange,
		Dimensions: dimensions,
		OrderBy:    parseOrderBy(orderBy),
	}
	for _, f := range filterFlags {
		filter, err := parseFilter(f)
		if err != nil {
			fail(err)
		}
		q.Filters = append(q.Filters, filter)
	}
	if limit > 0 || offset > 0 {
		q.Pagination = &query.Pagination{Limit: limit, Offset: offset}
	} else if len(dimensions) > 0 {
		// Dimensional queries need pagination; default it rather than
		// making every invocation spell it out.
		q.Pagination = &query.Pagination{Limit: 100}
	}

	exec := buildExecutor(cmd)
	resp, err := exec.Execute(context.Background(), q, execOptions(cmd))
	if err != nil {
		fail(err)
	}

	if path, _ := cmd.Flags().GetString("export-csv"); path != "" {
		if err := export.WriteCSV(resp, q, path); err != nil {
			fail(err)
		}
		fmt.Printf("✅ Exported CSV to %s\n", path)
	}
	if path, _ := cmd.Flags().GetString("export-json"); path != "" {
		if err := export.WriteJSON(resp, path, true); err != nil {
			fail(err)
		}
		fmt.Printf("✅ Exported JSON to %s\n", path)
	}
	if doArchive, _ := cmd.Flags().GetBool("archive"); doArchive {
		archiveResponse(q, resp)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		printJSON(resp)
		return
	}
	maxRows, _ := cmd.Flags().GetInt("max-rows")
	for _, line := range export.FormatTable(resp, q, maxRows, 40) {
		fmt.Println(line)
	}
}

func archiveResponse(q *query.Query, resp *api.QueryResponse) {
	path, err := export.DefaultArchivePath()
	if err != nil {
		fail(err)
	}
	archive, err := export.OpenArchive(path)
	if err != nil {
		fail(err)
	}
	defer archive.Close()

	runID, err := archive.Store(context.Background(), q, resp)
	if err != nil {
		fail(err)
	}
	fmt.Printf("✅ Archived %d rows as %s\n", len(resp.Results), runID)
}

// --- cache handlers ---

func openCache() *cache.Cache {
	dir, err := cache.DefaultDir()
	if err != nil {
		fail(err)
	}
	store, err := cache.New(dir, nil)
	if err != nil {
		fail(err)
	}
	return store
}

func cacheInfoHandler(cmd *cobra.Command, args []string) {
	info := openCache().Info()
	fmt.Printf("Entries:  %d\n", info.TotalEntries)
	fmt.Printf("Location: %s\n", info.Location)
}

func cacheClearHandler(cmd *cobra.Command, args []string) {
	if err := openCache().Clear(); err != nil {
		fail(err)
	}
	fmt.Println("✅ Cache cleared")
}

func cachePruneHandler(cmd *cobra.Command, args []string) {
	removed := openCache().Prune()
	fmt.Printf("✅ Pruned %d expired entries\n", removed)
}

// --- results handlers ---

func resultsStatsHandler(cmd *cobra.Command, args []string) {
	path, err := export.DefaultArchivePath()
	if err != nil {
		fail(err)
	}
	archive, err := export.OpenArchive(path)
	if err != nil {
		fail(err)
	}
	defer archive.Close()

	stats, err := archive.Stats(context.Background())
	if err != nil {
		fail(err)
	}
	fmt.Printf("Runs:     %d\n", stats.TotalRuns)
	fmt.Printf("Rows:     %d\n", stats.TotalRows)
	fmt.Printf("Location: %s\n", stats.Location)
}

// --- seo handlers ---

func seoHelper(cmd *cobra.Command) *seo.Helper {
	return seo.NewHelper(buildExecutor(cmd))
}

func seoSourcesHandler(cmd *cobra.Command, args []string) {
	rangeFlag, _ := cmd.Flags().GetString("date-range")
	limit, _ := cmd.Flags().GetInt("limit")

	dateRange, err := parseDateRange(rangeFlag)
	if err != nil {
		fail(err)
	}

	reports, err := seoHelper(cmd).TopSources(context.Background(), dateRange, limit, execOptions(cmd))
	if err != nil {
		fail(err)
	}

	fmt.Printf("%-30s %10s %8s %10s %6s %6s\n", "SOURCE", "VISITORS", "BOUNCE", "DURATION", "SCORE", "GRADE")
	for _, r := range reports {
		fmt.Printf("%-30s %10.0f %7.1f%% %9.0fs %6d %6s\n",
			r.Source, r.Visitors, r.BounceRate, r.VisitDuration, r.Score, r.Grade)
	}
}

func seoPagesHandler(cmd *cobra.Command, args []string) {
	rangeFlag, _ := cmd.Flags().GetString("date-range")
	limit, _ := cmd.Flags().GetInt("limit")

	dateRange, err := parseDateRange(rangeFlag)
	if err != nil {
		fail(err)
	}

	reports, err := seoHelper(cmd).TopPages(context.Background(), dateRange, limit, execOptions(cmd))
	if err != nil {
		fail(err)
	}

	fmt.Printf("%-40s %10s %8s %10s %-10s\n", "PAGE", "VISITORS", "BOUNCE", "DURATION", "QUALITY")
	for _, r := range reports {
		fmt.Printf("%-40s %10.0f %7.1f%% %9.0fs %-10s\n",
			r.Page, r.Visitors, r.BounceRate, r.VisitDuration, r.Quality)
	}
}

func seoCompareHandler(cmd *cobra.Command, args []string) {
	metrics, _ := cmd.Flags().GetStringSlice("metrics")
	currentFlag, _ := cmd.Flags().GetString("current")
	previousFlag, _ := cmd.Flags().GetString("previous")

	current, err := parseDateRange(currentFlag)
	if err != nil {
		fail(err)
	}
	previous, err := parseDateRange(previousFlag)
	if err != nil {
		fail(err)
	}

	comparisons, err := seoHelper(cmd).ComparePeriodReports(context.Background(), metrics, current, previous, execOptions(cmd))
	if err != nil {
		fail(err)
	}

	fmt.Printf("%-20s %12s %12s %10s %8s %-12s\n", "METRIC", "CURRENT", "PREVIOUS", "CHANGE", "PCT", "SIGNIFICANCE")
	for _, c := range comparisons {
		arrow := "→"
		switch c.Direction {
		case seo.DirectionUp:
			arrow = "↑"
		case seo.DirectionDown:
			arrow = "↓"
		}
		fmt.Printf("%-20s %12.0f %12.0f %s %8.0f %6.1f%% %-12s\n",
			c.Metric, c.Current, c.Previous, arrow, c.Absolute, c.Percent, c.Significance)
	}
}

func seoDecayHandler(cmd *cobra.Command, args []string) {
	baselineFlag, _ := cmd.Flags().GetString("baseline")
	recentFlag, _ := cmd.Flags().GetString("recent")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	limit, _ := cmd.Flags().GetInt("limit")

	baseline, err := parseDateRange(baselineFlag)
	if err != nil {
		fail(err)
	}
	recent, err := parseDateRange(recentFlag)
	if err != nil {
		fail(err)
	}

	reports, err := seoHelper(cmd).ContentDecay(context.Background(), baseline, recent, limit, threshold, execOptions(cmd))
	if err != nil {
		fail(err)
	}

	if len(reports) == 0 {
		fmt.Println("✅ No decaying pages above the threshold")
		return
	}
	fmt.Printf("%-40s %10s %10s %8s %-10s\n", "PAGE", "BASELINE", "RECENT", "DROP", "SEVERITY")
	for _, r := range reports {
		fmt.Printf("%-40s %10.0f %10.0f %6.1f%% %-10s\n",
			r.Page, r.Baseline, r.Recent, r.DropPercent, r.Severity)
	}
}
