package main

import (
	"fmt"
	"sort"

	"github.com/disiqueira/gotree/v3"
	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/spf13/cobra"
)

func parseEntityType(raw string) (models.EntityType, error) {
	t := models.EntityType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q (want one of %v)", raw, models.EntityTypes)
	}
	return t, nil
}

func newCandidatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <source-type> <target-type>",
		Short: "Show the relationship types possible between two entity types",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceType, err := parseEntityType(args[0])
			if err != nil {
				return err
			}
			targetType, err := parseEntityType(args[1])
			if err != nil {
				return err
			}

			c, err := opts.loadCatalog()
			if err != nil {
				return err
			}

			source := models.Entity{Type: sourceType, DefaultAlias: string(sourceType)}
			target := models.Entity{Type: targetType, DefaultAlias: string(targetType)}
			candidates := relationships.GenerateCandidates(c.RelationshipTypes, source, target)
			if len(candidates) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no relationship types between %s and %s\n", sourceType, targetType)
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), candidateTree(sourceType, targetType, candidates).Print())
			return nil
		},
	}
}

// candidateTree nests candidates by depth; the list is already in
// parent-before-child order
func candidateTree(source, target models.EntityType, candidates []relationships.Candidate) gotree.Tree {
	root := gotree.New(fmt.Sprintf("%s → %s", source, target))
	stack := []gotree.Tree{root}

	for _, cand := range candidates {
		depth := cand.Depth
		if depth >= len(stack) {
			depth = len(stack) - 1
		}
		label := fmt.Sprintf("%s (%d)", cand.Phrase(), cand.Type.ID)
		if cand.Reversed {
			label += " [reversed]"
		}
		node := stack[depth].Add(label)
		stack = append(stack[:depth+1], node)
	}
	return root
}

// hierarchyTree renders every relationship type under its parent
func hierarchyTree(c *catalog.Catalog) gotree.Tree {
	children := make(map[int][]models.RelationshipType)
	var roots []models.RelationshipType
	for _, rt := range c.RelationshipTypes {
		if rt.ParentID == nil {
			roots = append(roots, rt)
			continue
		}
		children[*rt.ParentID] = append(children[*rt.ParentID], rt)
	}

	byOrder := func(types []models.RelationshipType) {
		sort.SliceStable(types, func(i, j int) bool {
			if types[i].ChildOrder != types[j].ChildOrder {
				return types[i].ChildOrder < types[j].ChildOrder
			}
			return types[i].ID < types[j].ID
		})
	}

	var add func(parent gotree.Tree, rt models.RelationshipType)
	add = func(parent gotree.Tree, rt models.RelationshipType) {
		label := fmt.Sprintf("%s (%d): %s %s %s", rt.Label, rt.ID, rt.SourceEntityType, rt.LinkPhrase, rt.TargetEntityType)
		if rt.Deprecated {
			label += " [deprecated]"
		}
		node := parent.Add(label)
		kids := children[rt.ID]
		byOrder(kids)
		for _, child := range kids {
			add(node, child)
		}
	}

	root := gotree.New("relationship types")
	byOrder(roots)
	for _, rt := range roots {
		add(root, rt)
	}
	return root
}
