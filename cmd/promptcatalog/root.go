package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/catalog"
	"github.com/skosovsky/promptcatalog/filesource"
	"github.com/skosovsky/promptcatalog/internal/config"
	"github.com/skosovsky/promptcatalog/internal/logging"
	"github.com/skosovsky/promptcatalog/otelcatalog"
	"github.com/skosovsky/promptcatalog/registry"
	"github.com/skosovsky/promptcatalog/remotesource"
	"github.com/skosovsky/promptcatalog/remotesource/git"
)

// app holds state shared by subcommands. It is populated by open.
type app struct {
	cfgFile      string
	outputFormat string

	cfg      *config.Config
	logger   *slog.Logger
	files    *filesource.Source // nil unless the source kind is dir
	catalog  *catalog.Catalog
	registry *registry.Registry
	svc      promptcatalog.Service
	closers  []func() error
}

// execute runs the CLI with args and releases the prompt source afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "promptcatalog",
		Short: "Inspect and render a catalog of YAML prompt definitions",
		Long: `promptcatalog loads prompt definitions (YAML files with a name, description,
template and declared variables) from a directory, a git repository or an HTTP endpoint,
and renders them by literal {name} substitution.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./promptcatalog.yaml or ~/.promptcatalog/promptcatalog.yaml)")
	pf.String("prompts-dir", "prompts", "directory containing prompt YAML files")
	pf.String("source", config.SourceDir, "prompt source: dir, git or http")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	pf.StringVarP(&a.outputFormat, "output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newRenderCmd(a),
		newReloadCmd(a),
		newWatchCmd(a),
		newGenCmd(a),
		newVersionCmd(),
	)
	return root
}

// open resolves configuration, builds the prompt source and performs the initial load.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if a.outputFormat != "yaml" && a.outputFormat != "json" {
		return fmt.Errorf("unknown output format %q (want yaml or json)", a.outputFormat)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	src, err := a.newSource()
	if err != nil {
		return err
	}
	c, err := catalog.Open(cmd.Context(), src, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	a.catalog = c
	a.registry = registry.New(c, registry.WithLogger(logger))
	a.closers = append(a.closers, func() error { a.registry.Close(); return nil })
	a.svc = otelcatalog.Wrap(a.registry, otelcatalog.WithTracerProvider(otel.GetTracerProvider()))
	return nil
}

func (a *app) newSource() (catalog.Source, error) {
	switch a.cfg.Source.Kind {
	case config.SourceGit:
		gc := a.cfg.Source.Git
		f, err := git.NewFetcher(gc.URL,
			git.WithBranch(gc.Branch),
			git.WithDir(gc.Dir),
			git.WithAuth(gc.Token),
			git.WithCloneDir(gc.CloneDir),
			git.WithLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		src := remotesource.New(f, remotesource.WithLogger(a.logger))
		a.closers = append(a.closers, src.Close)
		return src, nil
	case config.SourceHTTP:
		hc := a.cfg.Source.HTTP
		client := &http.Client{Timeout: hc.Timeout}
		f, err := remotesource.NewHTTPFetcher(hc.BaseURL,
			remotesource.WithAuthToken(hc.Token),
			remotesource.WithRetry(hc.Retries, 0),
			remotesource.WithHTTPClient(client),
		)
		if err != nil {
			return nil, err
		}
		src := remotesource.New(f, remotesource.WithLogger(a.logger))
		a.closers = append(a.closers, src.Close, func() error {
			client.CloseIdleConnections()
			return nil
		})
		return src, nil
	default:
		a.files = filesource.New(a.cfg.PromptsDir)
		return a.files, nil
	}
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// print writes v in the selected output format.
func (a *app) print(w io.Writer, v any) error {
	if a.outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// infos describes every prompt in discovery order.
func (a *app) infos(ctx context.Context) ([]promptcatalog.Info, error) {
	names, err := a.svc.Names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]promptcatalog.Info, 0, len(names))
	for _, name := range names {
		info, err := a.svc.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
