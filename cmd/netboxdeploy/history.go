package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"netboxdeploy/internal/history"
	"netboxdeploy/internal/security"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [DEPLOYMENT]",
	Short: "Show recorded renders",
	Long: `Without arguments, show the latest render of every deployment. With a
deployment name, show its most recent renders.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of renders to show for one deployment")
}

func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.NewHistory(historyDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hist.Close()

	deployment := ""
	if len(args) > 0 {
		deployment = args[0]
	}
	return historyWith(cmd.Context(), cmd.OutOrStdout(), hist, deployment, historyLimit)
}

func historyWith(ctx context.Context, out io.Writer, hist *history.History, deployment string, limit int) error {
	var records []history.RenderRecord

	if deployment != "" {
		if err := security.ValidateDeploymentName(deployment); err != nil {
			return err
		}
		var err error
		records, err = hist.GetRenderHistory(ctx, deployment, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no renders recorded for %s", deployment)
		}
	} else {
		latest, err := hist.GetAllDeploymentsStatus(ctx)
		if err != nil {
			return err
		}
		for _, r := range latest {
			records = append(records, *r)
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].Deployment < records[j].Deployment
		})
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No renders recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEPLOYMENT\tSTATUS\tSTARTED\tARTIFACTS\tDETAIL")
	for _, r := range records {
		detail := ""
		switch {
		case r.Digest != nil:
			detail = shortDigest(*r.Digest)
		case r.ErrorMessage != nil:
			detail = *r.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Deployment, r.Status, r.StartedAt.Local().Format(time.RFC3339), r.ArtifactCount, detail)
	}
	return tw.Flush()
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
