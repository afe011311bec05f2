package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	apiclient "github.com/sellerops/amazon-connector/internal/api/client"
	"github.com/sellerops/amazon-connector/internal/api/handlers"
	"github.com/sellerops/amazon-connector/internal/cache"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printActivityTable(activities []domain.Activity) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tMARKETPLACE\tTYPE\tACTION\tSTATUS\tORDERS\tITEMS\tSAVED\tCREATED\n")
	for i := range activities {
		a := &activities[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%d\t%d\t%v\t%s\n",
			a.ID,
			a.MarketplaceID,
			a.Type,
			a.Action,
			a.Status,
			a.OrdersFetched,
			a.ItemsFetched,
			a.DatabaseSaved,
			a.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.finish()
}

func printActivityDetail(a *domain.Activity) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID:\t%s\n", a.ID)
	tw.writef("Marketplace:\t%s\n", a.MarketplaceID)
	tw.writef("Type:\t%s\n", a.Type)
	tw.writef("Action:\t%s\n", a.Action)
	tw.writef("Status:\t%s\n", a.Status)
	tw.writef("Window:\t%s to %s\n",
		a.DateFrom.Format("2006-01-02"), a.DateTo.Format("2006-01-02"))
	tw.writef("Orders:\t%d\n", a.OrdersFetched)
	tw.writef("Items:\t%d\n", a.ItemsFetched)
	tw.writef("Duration:\t%.1fs\n", a.Duration)
	tw.writef("Saved:\t%v\n", a.DatabaseSaved)
	if a.Detail != "" {
		tw.writef("Detail:\t%s\n", a.Detail)
	}
	if a.ErrorMessage != "" {
		tw.writef("Error:\t%s\n", a.ErrorMessage)
	}
	return tw.finish()
}

func printStats(s *domain.ActivityStats) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Total:\t%d\n", s.Total)
	tw.writef("Completed:\t%d\n", s.Completed)
	tw.writef("Failed:\t%d\n", s.Failed)
	tw.writef("In Progress:\t%d\n", s.InProgress)
	tw.writef("Orders Fetched:\t%d\n", s.OrdersFetched)
	tw.writef("Items Fetched:\t%d\n", s.ItemsFetched)
	for mp, n := range s.ByMarketplace {
		tw.writef("  %s:\t%d\n", mp, n)
	}
	return tw.finish()
}

func printJobRunsTable(runs []domain.JobRun) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tERROR\n")
	for i := range runs {
		r := &runs[i]
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format("2006-01-02 15:04:05")
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			completed,
			truncate(r.Error, 40),
		)
	}
	return tw.finish()
}

func printProcessedTable(entries []cache.Entry) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("KEY\tMARKETPLACE\tROWS\tCREATED\n")
	for i := range entries {
		tw.writef("%s\t%s\t%d\t%s\n",
			entries[i].Key,
			entries[i].MarketplaceID,
			entries[i].RowCount,
			entries[i].CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.finish()
}

func printMarketplacesTable(markets []handlers.Marketplace) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("CODE\tMARKETPLACE ID\tREGION\tENDPOINT\n")
	for i := range markets {
		tw.writef("%s\t%s\t%s\t%s\n",
			markets[i].Code,
			markets[i].MarketplaceID,
			markets[i].Region,
			markets[i].Endpoint,
		)
	}
	return tw.finish()
}

func printConnectionStatus(s *apiclient.ConnectionStatus) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Connected:\t%v\n", s.Connected)
	if s.AppID != "" {
		tw.writef("App ID:\t%s\n", s.AppID)
	}
	if !s.ConnectedAt.IsZero() {
		tw.writef("Connected At:\t%s\n", s.ConnectedAt.Format("2006-01-02 15:04:05"))
	}
	if !s.ExpiresAt.IsZero() {
		tw.writef("Token Expires:\t%s\n", s.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
