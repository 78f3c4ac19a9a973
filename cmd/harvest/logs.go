package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/harvest"
)

// Run executes the logs command.
func (c *LogsCmd) Run(deps *Dependencies) error {
	status, err := statusFilter(c.Status)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	filter := harvest.AuditFilter{Status: status, Limit: c.Limit}
	if c.RunID != "" {
		filter.RunID = &c.RunID
	}
	if c.Vertical != "" {
		filter.Vertical = &c.Vertical
	}
	if c.Ref != "" {
		filter.Ref = &c.Ref
	}

	entries, err := deps.Audit.FindLogs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(deps.Stdout, "No log entries found.")
		return nil
	}

	for _, e := range entries {
		ref := e.Ref
		if ref == "" {
			ref = "-"
		}
		line := fmt.Sprintf("%s  %s  %s  %s  %s",
			e.CreatedAt.UTC().Format(time.RFC3339), e.RunID, e.Vertical, ref, e.Status)
		if e.Message != "" {
			line += "  " + e.Message
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	return nil
}

func statusFilter(s string) (*harvest.Status, error) {
	if s == "" {
		return nil, nil
	}
	st := harvest.Status(s)
	switch st {
	case harvest.StatusCreated, harvest.StatusUpdated, harvest.StatusSkipped, harvest.StatusError, harvest.StatusImageError:
		return &st, nil
	}
	return nil, harvest.Errorf(harvest.EINVALID, "unknown status %q", s)
}
