package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/series-notifier/internal/app"
	"github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *runtime) error) error {
	if err := opts.Config.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(ctx, rt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var rebuild, asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass (date correction, mirror merge, write-back)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				var (
					report domain.ReconcileReport
					err    error
				)
				if rebuild {
					report, err = rt.rec.Rebuild(ctx)
				} else {
					report, err = rt.rec.Run(ctx)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), app.FormatReport(report))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "drop the local mirror and rebuild it from the catalog")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "digest <today|tomorrow|this_week|next_week>",
		Short:     "Print the digest for a window",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"today", "tomorrow", "this_week", "next_week"},
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := domain.ParseWindow(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				d, err := rt.svc.Digest(ctx, window)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), d)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), d.Text())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the classified entries as JSON")
	return cmd
}

func NewWantedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "wanted",
		Short: "Print the want-to-watch list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *runtime) error {
				text, err := rt.svc.Wanted(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), appName, buildinfo.Current().String())
			return err
		},
	}
}
