package cli

import (
	"fmt"
	"io"

	"github.com/devicelab-dev/contacts-runner/pkg/scenarios"
	"github.com/devicelab-dev/contacts-runner/pkg/suite"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the registered scenarios in run order",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Only list scenarios whose Class.name contains this (repeatable)",
		},
	},
	Action: func(c *cli.Context) error {
		selected := suite.Filter(scenarios.All(), c.StringSlice("filter")...)
		printScenarios(c.App.Writer, selected)
		return nil
	},
}

func printScenarios(w io.Writer, list []suite.Scenario) {
	classes := lo.Uniq(lo.Map(list, func(s suite.Scenario, _ int) string { return s.Class }))
	byClass := lo.GroupBy(list, func(s suite.Scenario) string { return s.Class })

	for _, class := range classes {
		fmt.Fprintln(w, titleStyle.Render(class))
		for _, s := range byClass[class] {
			fmt.Fprintf(w, "  %d. %s %s\n", s.Priority, boldStyle.Render(s.Name), dimStyle.Render(s.Description))
		}
	}
	fmt.Fprintf(w, "\n%d scenario(s)\n", len(list))
}
