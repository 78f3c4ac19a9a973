package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/vertical"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	v, err := vertical.ByName(c.Vertical)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	if c.Ref != "" {
		e, err := deps.Store.FindEntity(deps.Ctx, v.Name, c.Ref)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
			return err
		}
		printEntity(deps, e)
		return nil
	}

	status, err := statusFilter(c.Status)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	filter := harvest.EntityFilter{Vertical: &v.Name, Status: status, Limit: c.Limit}
	if c.Category != "" {
		filter.Category = &c.Category
	}

	entities, err := deps.Store.FindEntities(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	if len(entities) == 0 {
		fmt.Fprintf(deps.Stdout, "No %s found. Use 'harvest crawl %s' to ingest some.\n", v.Name, v.Name)
		return nil
	}

	for _, e := range entities {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", e.Ref, e.LastScrapeStatus, e.Title(v.TitleField))
	}
	return nil
}

func printEntity(deps *Dependencies, e *harvest.Entity) {
	w := deps.Stdout
	fmt.Fprintf(w, "vertical:     %s\n", e.Vertical)
	fmt.Fprintf(w, "ref:          %s\n", e.Ref)
	if e.Category != "" || e.Subcategory != "" {
		fmt.Fprintf(w, "category:     %s / %s\n", e.Category, e.Subcategory)
	}
	fmt.Fprintf(w, "status:       %s\n", e.LastScrapeStatus)
	if e.LastScrapeMessage != "" {
		fmt.Fprintf(w, "message:      %s\n", e.LastScrapeMessage)
	}
	fmt.Fprintf(w, "run_id:       %s\n", e.LastScrapeRunID)
	fmt.Fprintf(w, "created_at:   %s\n", e.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "updated_at:   %s\n", e.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "checked_at:   %s\n", e.LastCheckedAt.UTC().Format(time.RFC3339))
	if e.ImageURL != "" {
		fmt.Fprintf(w, "image_url:    %s\n", e.ImageURL)
	}
	fmt.Fprintf(w, "fields_hash:  %s\n", e.FieldsHash)
	fmt.Fprintln(w)

	for _, name := range e.Fields.Names() {
		value := e.Fields[name]
		if value == "" {
			continue
		}
		if strings.Contains(value, "\n") {
			fmt.Fprintf(w, "%s:\n  %s\n", name, strings.ReplaceAll(value, "\n", "\n  "))
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", name, value)
	}
}
