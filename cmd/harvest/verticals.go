package main

import (
	"fmt"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/vertical"
)

// Run executes the verticals command.
func (c *VerticalsCmd) Run(deps *Dependencies) error {
	all, err := vertical.All()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	for _, v := range all {
		search := v.SearchURL
		if search == "" {
			search = "(start URL required)"
		}
		fmt.Fprintf(deps.Stdout, "%-16s %-40s %s\n", v.Name, v.Description, search)
	}
	return nil
}
