package viz

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/storage"
)

// RunSummary renders the paths and identity of a finished run.
func RunSummary(m *lifecycle.Manager, elapsed time.Duration, runErr error) string {
	status := StatusOK.Render("ok")
	if runErr != nil {
		status = StatusFailed.Render("failed")
	}

	rows := [][2]string{
		{"sim", m.Name()},
		{"run id", m.ID()},
		{"trial", strconv.Itoa(m.Trial())},
		{"seed", strconv.FormatInt(m.Seed(), 10)},
		{"mode", m.Mode().String()},
		{"sim path", m.SimPath()},
		{"data file", m.HDF5Path()},
		{"elapsed", elapsed.Round(time.Millisecond).String()},
	}

	var b strings.Builder
	b.WriteString(Title.Render(m.SimDir()) + "  " + status + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", Label.Render(fmt.Sprintf("%-10s", row[0])), Value.Render(row[1]))
	}
	if runErr != nil {
		b.WriteString(StatusFailed.Render(runErr.Error()) + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// RunTable lists manifests one trial per line.
func RunTable(runs []storage.Manifest) string {
	if len(runs) == 0 {
		return Subtle.Render("no runs")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tSIM\tMODE\tCREATED\tDESCRIPTION")
	for _, r := range runs {
		mode := "normal"
		switch {
		case r.Test && r.Debug:
			mode = "test_debug"
		case r.Test:
			mode = "test"
		case r.Debug:
			mode = "debug"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Trial, r.Seed, r.Sim, mode, r.Created.Format(time.DateTime), r.Description)
	}
	w.Flush()
	return b.String()
}

// PlotColumn draws one series column against its sample index.
func PlotColumn(series *storage.Series, column string, width, height int) (string, error) {
	data, ok := series.Column(column)
	if !ok {
		return "", fmt.Errorf("no column %q (available: %v)", column, series.Names)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("column %q is empty", column)
	}

	caption := fmt.Sprintf("%s, t=%.2f..%.2f", column, series.Times[0], series.Times[len(series.Times)-1])
	graph := asciigraph.Plot(downsample(data, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
	return graph + "\n" + Sparkline(data, width), nil
}

func downsample(data []float64, width int) []float64 {
	if width <= 0 || len(data) <= width {
		return data
	}
	out := make([]float64, width)
	for i := range out {
		out[i] = data[i*len(data)/width]
	}
	return out
}
