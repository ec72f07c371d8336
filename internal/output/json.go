package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/taskpool/internal/executor"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatResults outputs task results as a JSON array
func (f *JSONFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	output := make([]map[string]interface{}, len(results))
	for i, result := range results {
		output[i] = resultItem(result)
	}
	return f.Format(w, output)
}

// FormatStats outputs pool statistics as a JSON array
func (f *JSONFormatter) FormatStats(w io.Writer, stats []executor.Stats) error {
	return f.Format(w, statsViews(stats))
}
