package cli

import (
	"fmt"
	"time"

	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gennadiy1g/csvbulkload/config"
	"github.com/gennadiy1g/csvbulkload/ddl"
	"github.com/gennadiy1g/csvbulkload/loader"
	"github.com/gennadiy1g/csvbulkload/output"
	"github.com/gennadiy1g/csvbulkload/parser"
	"github.com/gennadiy1g/csvbulkload/registry"
	"github.com/gennadiy1g/csvbulkload/tui"
	"github.com/gennadiy1g/csvbulkload/version"
)

// Shared flag definitions to eliminate duplication
var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to TOML configuration file (CLI flags override its values)",
	}

	// Parsing flags
	separatorFlag = &cli.StringFlag{
		Name:  "separator",
		Usage: "Field separator, a single character (e.g. ',' or '\\t')",
	}
	quoteFlag = &cli.StringFlag{
		Name:  "quote",
		Usage: "Quote character protecting separators inside a field",
	}
	escapeFlag = &cli.StringFlag{
		Name:  "escape",
		Usage: "Escape character making the following separator/quote/escape literal",
	}
	threadsFlag = &cli.IntFlag{
		Name:  "threads",
		Usage: "Number of analyzer threads (0 = hardware parallelism)",
	}
	encodingFlag = &cli.StringFlag{
		Name:  "encoding",
		Usage: "Input character encoding (utf-8, latin1, windows-1251, cp863, ...)",
	}

	// Output flags
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Output compact JSON (no pretty printing)",
		Value: false,
	}
	plainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Output plain text format for easy readability",
		Value: false,
	}
	plotPathFlag = &cli.StringFlag{
		Name:  "plotPath",
		Usage: "Path where to save the column-profile chart (e.g. '/path/to/profile.html'). If not provided, no plot is generated.",
	}
	tuiFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Browse the inferred schema in a terminal UI",
		Value: false,
	}

	// Connection flags
	hostFlag = &cli.StringFlag{
		Name:  "host",
		Usage: "MonetDB host",
	}
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "MonetDB port",
	}
	databaseFlag = &cli.StringFlag{
		Name:  "database",
		Usage: "MonetDB database name",
	}
	userFlag = &cli.StringFlag{
		Name:  "user",
		Usage: "MonetDB user",
	}
	passwordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "MonetDB password",
	}

	// Load flags
	mclientFlag = &cli.BoolFlag{
		Name:  "mclient",
		Usage: "Load through the mclient binary instead of the ODBC driver",
		Value: false,
	}
	tableFlag = &cli.StringFlag{
		Name:  "table",
		Usage: "Target table name (single input only; default is the file stem)",
	}
	justPrintFlag = &cli.BoolFlag{
		Name:  "justPrint",
		Usage: "Print the generated statements without executing them",
		Value: false,
	}
)

// App is the csvbulkload command line application.
var App = &cli.App{
	Name:  "csvbulkload",
	Usage: "Infer a schema from delimited text files and bulk-load them into MonetDB",
	Commands: []*cli.Command{
		{
			Name:      "analyze",
			Usage:     "Parse files and report the inferred schema",
			ArgsUsage: "<file> [<file>...]",
			Flags: []cli.Flag{
				configFlag, separatorFlag, quoteFlag, escapeFlag, threadsFlag, encodingFlag,
				compactFlag, plainFlag, plotPathFlag, tuiFlag,
			},
			Action: runAnalyze,
		},
		{
			Name:      "load",
			Usage:     "Analyze files, create matching tables and bulk-load them",
			ArgsUsage: "<file> [<file>...]",
			Flags: []cli.Flag{
				configFlag, separatorFlag, quoteFlag, escapeFlag, threadsFlag, encodingFlag,
				hostFlag, portFlag, databaseFlag, userFlag, passwordFlag,
				mclientFlag, tableFlag, justPrintFlag, plainFlag, compactFlag,
			},
			Action: runLoad,
		},
		{
			Name:  "version",
			Usage: "Print version information",
			Action: func(c *cli.Context) error {
				fmt.Println(version.String())
				return nil
			},
		},
	},
}

// resolveConfig merges the config file (if any) with CLI flag overrides.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("separator") {
		cfg.Parser.Separator = c.String("separator")
	}
	if c.IsSet("quote") {
		cfg.Parser.Quote = c.String("quote")
	}
	if c.IsSet("escape") {
		cfg.Parser.Escape = c.String("escape")
	}
	if c.IsSet("threads") {
		cfg.Parser.Threads = c.Int("threads")
	}
	if c.IsSet("encoding") {
		cfg.Parser.Encoding = c.String("encoding")
	}
	if c.IsSet("host") {
		cfg.Connection.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Connection.Port = c.Int("port")
	}
	if c.IsSet("database") {
		cfg.Connection.Database = c.String("database")
	}
	if c.IsSet("user") {
		cfg.Connection.User = c.String("user")
	}
	if c.IsSet("password") {
		cfg.Connection.Password = c.String("password")
	}

	// Tab is the one separator users cannot type literally in a shell.
	if cfg.Parser.Separator == `\t` {
		cfg.Parser.Separator = "\t"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// analyzeFiles parses every input concurrently and returns the results in
// argument order, nil for an input that failed. Per-file failures land in
// the report's error list rather than aborting the other files.
func analyzeFiles(cfg *config.Config, paths []string, report *output.SchemaReport) []*parser.ParsingResults {
	reg := registry.New()
	results := make([]*parser.ParsingResults, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			p := parser.NewCsvFileParser(path)
			p.Encoding = cfg.Parser.Encoding
			res, err := reg.GetOrParse(path, func() (*parser.ParsingResults, error) {
				return p.Parse(cfg.Separator(), cfg.Quote(), cfg.Escape(), cfg.Parser.Threads)
			})
			if err != nil {
				report.AddError("parse", err.Error())
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func runAnalyze(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one input file is required", 1)
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	startTime := time.Now()
	report := output.NewSchemaReport(startTime)
	paths := c.Args().Slice()

	results := analyzeFiles(cfg, paths, report)
	for i, res := range results {
		if res == nil {
			continue
		}
		report.AddFile(output.NewFileResult(paths[i], ddl.TableNameFromPath(paths[i]), res))
	}
	report.UpdateDuration(startTime)

	if path := c.String("plotPath"); path != "" && len(report.Files) > 0 {
		// One chart per run; the first file wins.
		if err := output.PlotColumnProfile(report.Files[0], path); err != nil {
			report.AddWarning("plot", err.Error())
		}
	}

	if c.Bool("tui") {
		if err := tui.NewApp(report).Run(); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	} else if err := printReport(c, report); err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		return cli.Exit("analysis failed for some inputs", 1)
	}
	return nil
}

func runLoad(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one input file is required", 1)
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.String("table") != "" && c.NArg() > 1 {
		return cli.Exit("--table can only be used with a single input file", 1)
	}

	startTime := time.Now()
	report := output.NewSchemaReport(startTime)
	paths := c.Args().Slice()

	results := analyzeFiles(cfg, paths, report)

	ld := pickLoader(c, cfg)
	for i, res := range results {
		if res == nil {
			continue
		}
		table := c.String("table")
		if table == "" {
			table = ddl.TableNameFromPath(paths[i])
		}
		stmts := ddl.Statements{
			Drop:   ddl.DropTable(table),
			Create: ddl.CreateTable(table, res),
			Copy:   ddl.CopyInto(table, paths[i], cfg.Separator(), cfg.Quote()),
		}

		file := output.NewFileResult(paths[i], table, res)

		if c.Bool("justPrint") {
			fmt.Printf("%s;\n%s;\n%s;\n", stmts.Drop, stmts.Create, stmts.Copy)
		} else {
			rejected, err := ld.Load(c.Context, stmts)
			if err != nil {
				report.AddError("load", fmt.Sprintf("%s: %v", paths[i], err))
				continue
			}
			if rejected != loader.RejectsUnknown {
				file.RejectedRecords = &rejected
			}
		}
		report.AddFile(file)
	}
	report.UpdateDuration(startTime)

	if !c.Bool("justPrint") {
		if err := printReport(c, report); err != nil {
			return err
		}
	}
	if len(report.Errors) > 0 {
		return cli.Exit("load failed for some inputs", 1)
	}
	return nil
}

func pickLoader(c *cli.Context, cfg *config.Config) loader.Loader {
	settings := cfg.ConnectionSettings()
	if c.Bool("mclient") {
		return &loader.Mclient{Settings: settings}
	}
	return &loader.ODBC{Settings: settings}
}

func printReport(c *cli.Context, report *output.SchemaReport) error {
	switch {
	case c.Bool("plain"):
		fmt.Print(report.ToPlainText())
	case c.Bool("compact"):
		data, err := report.ToCompactJSON()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(string(data))
	default:
		data, err := report.ToJSON()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(string(data))
	}
	return nil
}
