// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/coredb"
	"github.com/flowd-org/ask/internal/events"
	"github.com/spf13/cobra"
)

// HistoryEntry is one journaled dispatch.
type HistoryEntry struct {
	DispatchID string    `json:"dispatch_id"`
	Action     string    `json:"action"`
	Handler    string    `json:"handler,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Events     int       `json:"events"`
	Started    time.Time `json:"started"`
	Updated    time.Time `json:"updated"`
}

func NewHistoryCmd(s Streams, g *argv.Globals) *cobra.Command {
	var (
		limit int
		stats bool
	)
	c := &cobra.Command{
		Use:   ":history",
		Short: "List recent dispatches from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *g, s, appOptions{withJournal: true})
			if err != nil {
				return err
			}
			defer app.Close()
			if app.Journal() == nil {
				return errors.New("dispatch journal is disabled")
			}

			if stats {
				st, err := coredb.CollectStorageStats(cmd.Context(), app.DB())
				if err != nil {
					return err
				}
				if g.JSON {
					enc := json.NewEncoder(s.Out)
					enc.SetIndent("", "  ")
					return enc.Encode(st)
				}
				fmt.Fprintf(s.Out, "Database: %s\n", st.Path)
				fmt.Fprintf(s.Out, "Used: %s of %s\n", humanize.IBytes(uint64(st.BytesUsed)), humanize.IBytes(uint64(st.MaxBytes)))
				fmt.Fprintf(s.Out, "Journal: %s events across %s dispatches, %s of %s\n",
					humanize.Comma(st.Entries), humanize.Comma(st.Dispatches),
					humanize.IBytes(uint64(st.PayloadBytes)), humanize.IBytes(uint64(st.PayloadLimit)))
				if st.NearFull {
					fmt.Fprintln(s.Out, "Oldest dispatches are being evicted")
				}
				return nil
			}

			entries, err := loadHistory(cmd.Context(), app.Journal(), limit)
			if err != nil {
				return err
			}
			if g.JSON {
				enc := json.NewEncoder(s.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(s.Out, "(no dispatches recorded)")
				return nil
			}
			tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tACTION\tHANDLER\tSTATUS\tDISPATCH")
			for _, e := range entries {
				handler := e.Handler
				if handler == "" {
					handler = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(e.Started), e.Action, handler, e.Status, e.DispatchID)
			}
			return tw.Flush()
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "Maximum number of dispatches to list (0 for all)")
	c.Flags().BoolVar(&stats, "stats", false, "Show Core DB storage usage instead")
	return c
}

// loadHistory summarizes the newest dispatches from their journaled events.
// A dispatch without a finish event is reported as running.
func loadHistory(ctx context.Context, journal *coredb.Journal, limit int) ([]HistoryEntry, error) {
	summaries, err := journal.Dispatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(summaries))
	for _, sum := range summaries {
		entry := HistoryEntry{
			DispatchID: sum.DispatchID,
			Status:     "running",
			Events:     sum.Events,
			Started:    sum.Started,
			Updated:    sum.Updated,
		}
		err := journal.ForEach(ctx, sum.DispatchID, 0, func(je coredb.JournalEntry) error {
			ev, err := events.DecodeEvent(je.Payload)
			if err != nil {
				return err
			}
			switch ev.Type {
			case events.TypeDispatchStart:
				entry.Action, _ = ev.Data["action"].(string)
			case events.TypeDispatchFinish:
				entry.Handler = ev.Handler
				entry.Status, _ = ev.Data["status"].(string)
				entry.Error, _ = ev.Data["error"].(string)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
