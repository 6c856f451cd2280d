package main

import (
	"fmt"
	"strings"

	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/spf13/cobra"
)

func newISBNCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "isbn <value>",
		Short: "Check an ISBN and print its ISBN-10 and ISBN-13 forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[0]
			var isbn10, isbn13 string
			switch {
			case identifiers.CheckISBN13(value):
				isbn13 = strings.NewReplacer("-", "", " ", "").Replace(value)
				isbn10, _ = identifiers.ISBN13To10(value)
			case identifiers.CheckISBN10(value):
				isbn13, _ = identifiers.ISBN10To13(value)
				isbn10, _ = identifiers.ISBN13To10(isbn13)
			default:
				return fmt.Errorf("%q is not a valid ISBN", value)
			}

			out := cmd.OutOrStdout()
			if isbn10 != "" {
				fmt.Fprintf(out, "ISBN-10: %s\n", isbn10)
			}
			fmt.Fprintf(out, "ISBN-13: %s\n", isbn13)
			return nil
		},
	}
}

func newGuessCmd(opts *rootOptions) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "guess <value>",
		Short: "Infer the identifier type of a typed or pasted value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			idents, err := c.Identifiers()
			if err != nil {
				return err
			}

			result, err := service.NewIdentifierService(idents).Guess(models.EntityType(entityType), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Type == nil {
				fmt.Fprintf(out, "no identifier type matches %q\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "type:  %s (%d)\n", result.Type.Label, result.Type.ID)
			fmt.Fprintf(out, "value: %s\n", result.Value)
			fmt.Fprintf(out, "valid: %t\n", result.Valid)
			if result.Companion != nil {
				if companionType, ok := idents.Lookup(result.Companion.Type); ok {
					fmt.Fprintf(out, "also:  %s %s\n", companionType.Label, result.Companion.Value)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&entityType, "entity-type", "e", "", "Entity type whose identifier types are considered (default: all)")
	return cmd
}
