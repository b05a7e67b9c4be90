package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/similarity"
)

func newRulesCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the versioned rule table and scoring weights as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := matching.DefaultRuleTable()
			if err := table.Validate(); err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(struct {
				Rules   matching.RuleTable  `yaml:"rules"`
				Weights []similarity.Weight `yaml:"weights"`
			}{table, similarity.DefaultWeights}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
