// Command proposalctl inspects and maintains a proposalhub store from the
// command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"proposalhub/internal/config"
	"proposalhub/internal/core"
	"proposalhub/internal/logging"
	"proposalhub/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "proposalctl",
		Short:         "Inspect and maintain a proposalhub store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML); PROPOSALHUB_* variables override it")

	cmd.AddCommand(
		a.dumpCmd(),
		a.statsCmd(),
		a.generateCmd(),
		a.deleteProposalCmd(),
		a.restoreCmd(),
	)
	return cmd
}

// withService opens the configured store for the duration of fn.
func (a *app) withService(ctx context.Context, fn func(*core.Service) error) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, a.stderr)
	if err != nil {
		return err
	}
	svc, err := core.OpenService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("close store")
		}
	}()
	return fn(svc)
}

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the stored snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *core.Service) error {
				data, err := svc.Dump(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.stdout, string(data))
				return err
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	var prom bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record counts per entity kind",
		Long: "Print record counts per entity kind. When metrics.expvar is enabled the\n" +
			"recorded operation metrics follow the counts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *core.Service) error {
				stats := svc.Stats(cmd.Context())
				for _, kind := range domain.EntityTypes {
					if _, err := fmt.Fprintf(a.stdout, "%-14s %d\n", kind, stats[kind]); err != nil {
						return err
					}
				}
				metrics, _ := svc.Metrics().(*core.Metrics)
				if prom {
					if metrics == nil {
						return errors.New("--metrics needs metrics.prometheus enabled")
					}
					return metrics.WritePrometheus(a.stdout)
				}
				if metrics != nil && metrics.Expvar != nil {
					enc := json.NewEncoder(a.stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(metrics.Expvar.Snapshot())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&prom, "metrics", false, "Print the Prometheus registry after the counts")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	var (
		title       string
		description string
		ownerID     int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a proposal and its generated questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withService(ctx, func(svc *core.Service) error {
				input := domain.Proposal{Title: title, Description: description}
				if ownerID > 0 {
					input.OwnerID = &ownerID
				}
				p, err := svc.Proposals.Create(ctx, input)
				if err != nil {
					return err
				}
				questions, err := svc.Questions.Generate(ctx, p.ID, p.Title, p.Description)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Proposal  domain.Proposal           `json:"proposal"`
					Questions []domain.ProposalQuestion `json:"questions"`
				}{p, questions})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Proposal title")
	cmd.Flags().StringVar(&description, "description", "", "Proposal description")
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "Owner user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (a *app) deleteProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-proposal <id>",
		Short: "Delete a proposal with all of its dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			return a.withService(cmd.Context(), func(svc *core.Service) error {
				removed, err := svc.Proposals.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("proposal %d not found", id)
				}
				_, err = fmt.Fprintf(a.stdout, "deleted proposal %d\n", id)
				return err
			})
		},
	}
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the stored snapshot with a dump",
		Long: "Replace the stored snapshot with a file written by dump. Use - to read\n" +
			"standard input. Sections missing from the file are taken from the seed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *core.Service) error {
				repair, err := svc.Restore(cmd.Context(), data)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(a.stdout, "restored snapshot from %s\n", args[0]); err != nil {
					return err
				}
				if len(repair.Sections) > 0 {
					_, err = fmt.Fprintf(a.stdout, "seeded sections: %s\n", strings.Join(repair.Sections, ", "))
				}
				return err
			})
		},
	}
}

func (a *app) readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return data, nil
}
