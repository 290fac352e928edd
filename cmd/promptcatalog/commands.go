package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/filesource"
	"github.com/skosovsky/promptcatalog/internal/codegen"
)

// promptSummary is one row of the list output.
type promptSummary struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Required    []string `json:"required,omitempty" yaml:"required,omitempty"`
	Optional    []string `json:"optional,omitempty" yaml:"optional,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompts with their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			infos, err := a.infos(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]promptSummary, 0, len(infos))
			for _, info := range infos {
				row := promptSummary{Name: info.Name, Description: info.Description}
				for _, p := range info.Params {
					if p.Required {
						row.Required = append(row.Required, p.Name)
					} else {
						row.Optional = append(row.Optional, p.Name)
					}
				}
				rows = append(rows, row)
			}
			return a.print(cmd.OutOrStdout(), rows)
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the full metadata of one prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			info, err := a.svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), info)
		},
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		vars   []string
		tokens bool
	)
	cmd := &cobra.Command{
		Use:     "render NAME",
		Short:   "Render a prompt with the given variables",
		Example: `  promptcatalog render code_review --var code="$(cat main.go)" --var language=go`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseVars(vars)
			if err != nil {
				return err
			}
			if err := a.open(cmd); err != nil {
				return err
			}
			out, err := a.svc.Invoke(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if tokens {
				n, _ := promptcatalog.RuneCounter{}.Count(out)
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "~%d tokens\n", n)
			}
			return err
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable as key=value (repeatable)")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print an estimated token count to stderr")
	return cmd
}

// parseVars turns key=value pairs into an argument map. Later pairs win.
func parseVars(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q (want key=value)", pair)
		}
		out[key] = value
	}
	return out, nil
}

func newReloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the catalog and report the prompt count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			n, err := a.svc.Reload(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d prompts\n", n)
			return err
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the catalog whenever prompts change",
		Long: `watch keeps the catalog current until interrupted. For the dir source it follows
file system events; remote sources, and a prompts directory that does not exist yet, are
polled every --interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			a.logger.Info("watching prompts", "location", a.catalog.Location(), "count", a.catalog.Len())
			reload := func(ctx context.Context) {
				n, err := a.svc.Reload(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						a.logger.Error("reload failed", "err", err)
					}
					return
				}
				a.logger.Info(fmt.Sprintf("Reloaded %d prompts", n), "generation", a.catalog.Snapshot().Generation())
			}
			if a.files != nil {
				if info, err := os.Stat(a.files.Dir()); err != nil || !info.IsDir() {
					a.logger.Warn("prompts directory missing, polling until it appears",
						"dir", a.files.Dir(), "interval", interval)
					return poll(ctx, interval, reload)
				}
				return a.files.Watch(ctx, reload,
					filesource.WithDebounce(debounce),
					filesource.WithWatchLogger(a.logger),
				)
			}
			return poll(ctx, interval, reload)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", filesource.DefaultDebounce, "quiet period before a file change triggers a reload")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "poll interval for git and http sources and a missing prompts directory")
	return cmd
}

// poll calls fn every interval until ctx is done.
func poll(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("invalid --interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func newGenCmd(a *app) *cobra.Command {
	var pkg, out string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed Go argument structs for every prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			infos, err := a.infos(cmd.Context())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := codegen.Write(&buf, pkg, infos); err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil { // #nosec G306 -- generated Go source
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.logger.Info("generated prompt bindings", "file", out, "package", pkg, "count", len(infos))
			return nil
		},
	}
	cmd.Flags().StringVar(&pkg, "package", "prompts", "package name of the generated file")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	return cmd
}
