package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/db"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or seed the identifier and relationship type catalog",
	}
	cmd.AddCommand(newCatalogShowCmd(opts), newCatalogSeedCmd(opts))
	return cmd
}

func newCatalogShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the catalog's roles and relationship type hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d identifier types, %d relationship types\n\n", len(c.IdentifierTypes), len(c.RelationshipTypes))

			roles := make([]string, 0, len(c.Roles))
			for role := range c.Roles {
				roles = append(roles, role)
			}
			sort.Strings(roles)
			fmt.Fprintln(out, "roles:")
			for _, role := range roles {
				fmt.Fprintf(out, "  %-22s %d\n", role, c.Roles[role])
			}
			fmt.Fprintln(out)

			fmt.Fprint(out, hierarchyTree(c).Print())
			return nil
		},
	}
}

func newCatalogSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		driver  string
		dsn     string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the catalog into a database for SQL-backed deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}

			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}

			var logOut io.Writer = io.Discard
			if verbose {
				logOut = os.Stderr
			}
			log := logger.NewWithWriter(logOut, "info", "text")

			ctx := cmd.Context()
			handle, err := db.Open(ctx, driver, dsn, log)
			if err != nil {
				return err
			}
			defer handle.Close()

			if err := catalog.Seed(ctx, handle.DB, handle.Driver(), c); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d identifier types, %d relationship types, %d roles\n",
				len(c.IdentifierTypes), len(c.RelationshipTypes), len(c.Roles))
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite", "Database driver: pgx|sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log database activity to stderr")
	return cmd
}
