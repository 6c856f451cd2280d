package main

import (
	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	catalogPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "editorctl",
		Short: "Entity editor tooling - identifiers, relationship catalog and seeding",
		Long: `editorctl answers the lookups the entity editor makes without starting
a server: ISBN conversion, identifier type inference and the relationship
types possible between two entity types.

Examples:
  # Convert an ISBN-10 to ISBN-13
  editorctl isbn 080442957X

  # Infer the identifier type of a pasted value
  editorctl guess --entity-type Edition https://openlibrary.org/books/OL7353617M

  # Show the relationship hierarchy between authors and works
  editorctl candidates Author Work

  # Copy the catalog into a database
  editorctl catalog seed --driver sqlite --dsn catalog.db`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.catalogPath, "catalog", "c", "", "Catalog YAML file (default: embedded catalog)")

	root.AddCommand(
		newISBNCmd(),
		newGuessCmd(opts),
		newCandidatesCmd(opts),
		newCatalogCmd(opts),
	)
	return root
}

func (o *rootOptions) loadCatalog() (*catalog.Catalog, error) {
	if o.catalogPath == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(o.catalogPath)
}
