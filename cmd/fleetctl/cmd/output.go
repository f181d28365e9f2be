package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-fleet-admin/internal/utils"
)

// render prints v as JSON when --json is set, otherwise as a table.
func render(w io.Writer, v any, headers []string, rows [][]string) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 0, 64)
}

func id(v int64) string {
	return "#" + strconv.FormatInt(v, 10)
}

func optionalID(v *int64) string {
	if v == nil {
		return "-"
	}
	return utils.Int64String(v)
}

func parseID(arg string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return v, nil
}
