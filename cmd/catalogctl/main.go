package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gamecatalog/internal/app"
	"gamecatalog/internal/domain"
	"gamecatalog/internal/search"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cfg := app.LoadConfig()
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the game catalog from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "mongo connection string")
	root.PersistentFlags().StringVar(&cfg.MongoDatabase, "mongo-db", cfg.MongoDatabase, "mongo database name")
	root.PersistentFlags().StringVar(&cfg.AliasesPath, "aliases", cfg.AliasesPath, "platform alias YAML file (built-in table when empty)")
	root.PersistentFlags().DurationVar(&cfg.RemoteTimeout, "remote-timeout", cfg.RemoteTimeout, "deadline for the remote catalog call")

	root.AddCommand(searchCommand(&cfg), materializeCommand(&cfg), aliasesCommand(&cfg))
	return root
}

func searchCommand(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Run a merged local and remote search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), cfg, func(ctx context.Context, stack *app.Stack) error {
				response := stack.Search.Search(ctx, strings.Join(args, " "))
				return printJSON(cmd.OutOrStdout(), response)
			})
		},
	}
}

func materializeCommand(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize <id>",
		Short: "Fetch a game from IGDB and store it in the local catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseGameID(args[0])
			if err != nil {
				return err
			}
			return withStack(cmd.Context(), cfg, func(ctx context.Context, stack *app.Stack) error {
				if !stack.Remote.Enabled() {
					return fmt.Errorf("igdb credentials are required: set IGDB_CLIENT_ID and IGDB_CLIENT_SECRET")
				}
				game, err := stack.Materialize.Execute(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), game)
			})
		},
	}
}

func aliasesCommand(cfg *app.Config) *cobra.Command {
	var builtin bool
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Print the platform alias table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := search.DefaultAliasTable()
			if !builtin {
				loaded, err := search.LoadAliasTable(cfg.AliasesPath)
				if err != nil {
					return err
				}
				table = loaded
			}
			type row struct {
				Alias         string   `json:"alias"`
				PlatformIDs   []int    `json:"platformIds"`
				PlatformNames []string `json:"platformNames"`
			}
			rows := make([]row, 0, table.Len())
			for _, entry := range table.Entries() {
				rows = append(rows, row{Alias: entry.Phrase(), PlatformIDs: entry.PlatformIDs, PlatformNames: entry.PlatformNames})
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "ignore --aliases and print the embedded table")
	return cmd
}

func withStack(parent context.Context, cfg *app.Config, run func(context.Context, *app.Stack) error) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(parent, time.Minute)
	defer cancel()

	stack, err := app.Build(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = stack.Close(closeCtx)
	}()
	return run(ctx, stack)
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
