package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/readcns/internal/export"
)

func newInspectCmd() *cobra.Command {
	var (
		dbPath  string
		target  int64
		mermaid bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print graph statistics, or one target's correction and overlaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openGraph(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.InitSchema(ctx); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !cmd.Flags().Changed("target") {
				st, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				return enc.Encode(st)
			}

			if mermaid {
				diagram, err := export.GenerateMermaid(ctx, store, target)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), diagram)
				return err
			}

			node, err := store.Read(ctx, target)
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("readcns: read %d not in %s", target, dbPath)
			}
			ovs, err := store.Overlaps(ctx, target)
			if err != nil {
				return err
			}
			return enc.Encode(struct {
				Read     any `json:"read"`
				Overlaps any `json:"overlaps"`
			}{node, ovs})
		},
	}
	cmd.Flags().StringVar(&dbPath, "graph-db", "", "KuzuDB path written by correct --graph-db")
	cmd.Flags().Int64Var(&target, "target", 0, "target read id")
	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "with --target, print a Mermaid diagram instead of JSON")
	_ = cmd.MarkFlagRequired("graph-db")
	return cmd
}
