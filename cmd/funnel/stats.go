package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tbourn/vibe-compass/internal/domain"
	"github.com/tbourn/vibe-compass/internal/services"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print funnel statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		st, err := services.NewAnswerStore(db).AggregateStats(cmd.Context())
		if err != nil {
			return err
		}
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		return writeStats(cmd.OutOrStdout(), st)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
}

// writeStats renders the operator report: totals and completion rate first,
// then pain points and conversion statuses, most frequent first. The report
// is written to w in one call.
func writeStats(w io.Writer, st *services.Stats) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Total users: %d\nCompleted: %d (%.1f%%)\n", st.TotalCount, st.CompletedCount, st.CompletionRate*100)
	if len(st.PainPoints) > 0 {
		b.WriteString("\nPain points:\n")
		for _, kv := range byCount(st.PainPoints) {
			fmt.Fprintf(&b, "  %s: %d\n", domain.PainLabel(kv.key), kv.n)
		}
	}
	if len(st.ConversionStatuses) > 0 {
		b.WriteString("\nConversion statuses:\n")
		for _, kv := range byCount(st.ConversionStatuses) {
			fmt.Fprintf(&b, "  %s: %d\n", kv.key, kv.n)
		}
	}
	if _, err := b.WriteTo(w); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

type keyCount struct {
	key string
	n   int64
}

func byCount(m map[string]int64) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, n := range m {
		out = append(out, keyCount{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}
