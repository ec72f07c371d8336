package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/taskpool/internal/executor"
)

// TableFormatter formats output as a borderless, tab-separated table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case nil:
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatResults outputs task results as a table followed by a summary line
func (f *TableFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"TASK", "STATE", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "DATA")
	}
	f.setHeader(table, headers, colors)

	for _, result := range results {
		table.Append(f.formatResultRow(result, colors))
	}

	table.Render()

	f.printSummary(w, results, colors)

	return nil
}

// formatResultRow formats a single result as a table row
func (f *TableFormatter) formatResultRow(result executor.Result, colors *ColorScheme) []string {
	taskID := result.TaskID
	if !f.options.Wide && len(taskID) > 8 {
		taskID = taskID[:8]
	}
	if !colors.Disabled {
		taskID = colors.Name(taskID)
	}

	state := capitalize(result.State.String())
	if !colors.Disabled {
		state = colors.StateColor(result.State)(state)
	}

	duration := result.Duration.String()
	if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{taskID, state, duration}

	if f.options.Wide {
		dataStr := ""
		if result.Error != nil {
			dataStr = result.Error.Error()
		} else if result.Data != nil {
			dataStr = fmt.Sprintf("%v", result.Data)
		}
		if len(dataStr) > 50 {
			dataStr = dataStr[:47] + "..."
		}
		row = append(row, dataStr)
	}

	return row
}

// FormatStats outputs one row per pool
func (f *TableFormatter) FormatStats(w io.Writer, stats []executor.Stats) error {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No pools")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"POOL", "STATE", "THREADS", "ACTIVE", "QUEUED", "POLICY", "COMPLETED"}
	if f.options.Wide {
		headers = append(headers, "IDLE TIMEOUT", "LARGEST", "REMAINING", "SUBMITTED", "REJECTED")
	}
	f.setHeader(table, headers, colors)

	for _, s := range stats {
		name := s.Name
		if !colors.Disabled {
			name = colors.Name(name)
		}

		state := poolState(s)
		if !colors.Disabled {
			state = colors.PoolStateColor(state)(state)
		}

		threads := "sync"
		if !s.Synchronous {
			threads = fmt.Sprintf("%d/%d/%d", s.PoolSize, s.CorePoolSize, s.MaxPoolSize)
		}

		row := []string{
			name,
			state,
			threads,
			strconv.Itoa(s.ActiveCount),
			strconv.Itoa(s.QueueSize),
			s.RejectedHandler,
			strconv.FormatInt(s.CompletedTaskCount, 10),
		}
		if f.options.Wide {
			row = append(row,
				s.IdleTimeout.String(),
				strconv.Itoa(s.LargestPoolSize),
				strconv.Itoa(s.QueueRemainingCapacity),
				strconv.FormatInt(s.TaskCount, 10),
				strconv.FormatInt(s.RejectedTaskCount, 10),
			)
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// formatMap formats a map as a two-column table (key-value pairs), sorted by key
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data[0]))
	for k := range data[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !f.options.NoHeaders {
		headers := make([]string, len(keys))
		for i, k := range keys {
			headers[i] = strings.ToUpper(k)
		}
		table.SetHeader(headers)
	}

	for _, item := range data {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = fmt.Sprintf("%v", item[k])
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}

	coloredHeaders := make([]string, len(headers))
	for i, h := range headers {
		coloredHeaders[i] = colors.Header(h)
	}
	table.SetHeader(coloredHeaders)
}

// createTable creates a borderless table with tab padding
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints a summary of the results
func (f *TableFormatter) printSummary(w io.Writer, results []executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(results)

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	successText := fmt.Sprintf("%d successful", summary.Successful)
	if !colors.Disabled {
		successText = colors.Success(successText)
	}

	failedText := fmt.Sprintf("%d failed", summary.Failed)
	if !colors.Disabled && summary.Failed > 0 {
		failedText = colors.Error(failedText)
	}

	parts := []string{successText, failedText}
	if summary.Cancelled > 0 {
		cancelledText := fmt.Sprintf("%d cancelled", summary.Cancelled)
		if !colors.Disabled {
			cancelledText = colors.Warning(cancelledText)
		}
		parts = append(parts, cancelledText)
	}

	durationText := fmt.Sprintf("avg=%s", summary.AvgDuration.Round(1000))
	if !colors.Disabled {
		durationText = colors.Duration(durationText)
	}
	parts = append(parts, durationText)

	fmt.Fprintln(w, strings.Join(parts, ", "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
