package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ccanvas/bindings"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

type eventRecord struct {
	ID    uint32                `json:"id"`
	Event bindings.EventVariant `json:"event"`
}

var eventColours = map[string]text.Colors{
	bindings.TagKeyEvent:       {text.FgCyan, text.Bold},
	bindings.TagMouseEvent:     {text.FgMagenta},
	bindings.TagResizeEvent:    {text.FgYellow},
	bindings.TagMessageEvent:   {text.FgGreen},
	bindings.TagFocusedEvent:   {text.FgBlue},
	bindings.TagUnfocusedEvent: {text.FgHiBlack},
}

// formatEvent renders one event as a single human readable line.
func formatEvent(id uint32, ev bindings.EventVariant, colorize bool) string {
	tag := bindings.EventTag(ev)
	label := fmt.Sprintf("%-9s", tag)
	if colorize {
		label = eventColours[tag].Sprint(label)
	}
	return fmt.Sprintf("#%-6d %s %s", id, label, describeEvent(ev))
}

func describeEvent(ev bindings.EventVariant) string {
	switch e := ev.(type) {
	case bindings.KeyEvent:
		if e.Modifier == bindings.ModNone {
			return e.Code.String()
		}
		return string(e.Modifier) + "+" + e.Code.String()
	case bindings.MouseEvent:
		return fmt.Sprintf("%s at %d,%d", e.Type, e.X, e.Y)
	case bindings.ResizeEvent:
		return fmt.Sprintf("%dx%d", e.Width, e.Height)
	case bindings.MessageEvent:
		return fmt.Sprintf("from %s: %s", displayDiscrim(e.Sender), e.Content)
	}
	return ""
}

func displayDiscrim(d bindings.Discriminator) string {
	if d.IsRoot() {
		return "/"
	}
	return d.String()
}

type metricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// gatherMetrics flattens counters and gauges into one sample each and
// histograms into _count and _sum samples.
func gatherMetrics(g prometheus.Gatherer) ([]metricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var samples []metricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				samples = append(samples, metricSample{Name: mf.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetGauge() != nil:
				samples = append(samples, metricSample{Name: mf.GetName(), Labels: labels, Value: m.GetGauge().GetValue()})
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				samples = append(samples,
					metricSample{Name: mf.GetName() + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
					metricSample{Name: mf.GetName() + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}
	return samples, nil
}

func reportMetrics(w io.Writer, g prometheus.Gatherer, asJSON bool) error {
	samples, err := gatherMetrics(g)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(w).Encode(struct {
			Metrics []metricSample `json:"metrics"`
		}{samples})
	}
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{s.Name, formatLabels(s.Labels), strconv.FormatFloat(s.Value, 'g', -1, 64)})
	}
	_, err = fmt.Fprintln(w, renderTable([]string{"Metric", "Labels", "Value"}, rows))
	return err
}

func formatLabels(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
