package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/internal/config"
	"github.com/lc/cepr/internal/log"
	"github.com/lc/cepr/pkg/api"
	"github.com/lc/cepr/pkg/cep"
	"github.com/lc/cepr/pkg/client"
	"github.com/lc/cepr/pkg/lookup"
)

// _parallel caps concurrent lookups for one invocation.
const _parallel = 4

// errSomeFailed makes the exit status non-zero after partial output.
var errSomeFailed = errors.New("some lookups failed")

// outcome is the result of one CEP, from the daemon or in-process.
type outcome struct {
	CEP     string        `json:"cep"`
	Source  cep.Source    `json:"source,omitempty"`
	Address *cep.Address  `json:"address,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
	Kind    string        `json:"kind,omitempty"`
}

type lookupFunc func(ctx context.Context, code string) outcome

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "cepr",
		Short: "Resolve Brazilian postal codes",
		Long: `cepr resolves a CEP by querying ViaCEP, CepLá and Correios at the same time
and printing the first usable answer.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.cepr/config.yaml)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.New(cfgPath).Load()
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newLookupCmd(loadConfig),
		newStatusCmd(loadConfig),
		newConfigCmd(&cfgPath),
		newVersionCmd(),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newLookupCmd(load configLoader) *cobra.Command {
	var (
		direct  bool
		asJSON  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lookup <cep>...",
		Short: "Resolve one or more CEPs",
		Long: `Resolve each CEP and print its address. Codes may be written with or
without the hyphen ("70150-903" or "70150903").

Without --direct the lookup is served by ceprd.`,
		Example: "cepr lookup 70150-903 01001000",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var fn lookupFunc
			if direct {
				r, err := lookup.New(lookup.FromConfig(cfg, log.Zap())...)
				if err != nil {
					return err
				}
				fn = resolverLookup(r)
			} else {
				fn = daemonLookup(client.New(cfg.Socket.Path, nil))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			results := lookupAll(ctx, fn, args)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				render(out, cmd.ErrOrStderr(), results)
			}

			for _, r := range results {
				if r.Error != "" {
					return errSomeFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "query providers in-process instead of through ceprd")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func lookupAll(ctx context.Context, fn lookupFunc, codes []string) []outcome {
	results := make([]outcome, len(codes))

	var grp errgroup.Group
	grp.SetLimit(_parallel)
	for i, code := range codes {
		grp.Go(func() error {
			results[i] = fn(ctx, code)
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

func resolverLookup(r *cep.Resolver) lookupFunc {
	return func(ctx context.Context, code string) outcome {
		start := time.Now()
		res, err := r.Resolve(ctx, code)
		o := outcome{CEP: code, Elapsed: time.Since(start)}
		if err != nil {
			o.Error = err.Error()
			var cerr *cep.Error
			if errors.As(err, &cerr) {
				o.Kind = cerr.Kind.String()
			}
			return o
		}
		o.Source, o.Address = res.Source, &res.Address
		return o
	}
}

func daemonLookup(c *client.Client) lookupFunc {
	return func(ctx context.Context, code string) outcome {
		resp, err := c.Lookup(ctx, code)
		if err != nil {
			o := outcome{CEP: code, Error: err.Error()}
			var apiErr *api.ErrorResponse
			if errors.As(err, &apiErr) {
				o.Kind = apiErr.Kind
			}
			return o
		}
		return outcome{CEP: code, Source: resp.Source, Address: &resp.Address, Elapsed: resp.Elapsed}
	}
}

func render(out, errOut io.Writer, results []outcome) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"CEP", "Street", "Neighborhood", "City", "State", "Source", "Elapsed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	if !color.NoColor {
		header := tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor}
		table.SetHeaderColor(header, header, header, header, header, header, header)
	}

	rows := 0
	for _, r := range results {
		if r.Address == nil {
			continue
		}
		a := r.Address
		table.Append([]string{
			r.CEP, a.Street, a.Neighborhood, a.City, a.State,
			string(r.Source), r.Elapsed.Round(time.Millisecond).String(),
		})
		rows++
	}
	if rows > 0 {
		table.Render()
	}

	red := color.New(color.FgHiRed, color.Bold)
	for _, r := range results {
		if r.Error == "" {
			continue
		}
		red.Fprintf(errOut, "✗ %s: ", r.CEP)
		fmt.Fprintln(errOut, r.Error)
	}
}

func newStatusCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ceprd counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := client.New(cfg.Socket.Path, nil).Status(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.Bold).Fprintln(out, "CEPRD STATUS:")
			fmt.Fprintf(out, "version:   %s (%s)\n", st.Version, st.Commit)
			fmt.Fprintf(out, "uptime:    %s\n", st.Uptime.Round(time.Second))
			fmt.Fprintf(out, "providers: %v\n", st.Providers)
			fmt.Fprintf(out, "lookups:   %d\n", st.Lookups)
			fmt.Fprintf(out, "failures:  %d\n", st.Failures)
			return nil
		},
	}
}

func newConfigCmd(cfgPath *string) *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := config.New(*cfgPath)
			if !force {
				if _, err := os.Stat(p.Path()); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", p.Path())
				}
			}
			if err := p.Save(config.Default()); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", p.Path())
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", buildinfo.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", buildinfo.Commit)
		},
	}
}
