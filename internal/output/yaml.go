package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aryankumar/taskpool/internal/executor"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as YAML
func (f *YAMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}

// FormatResults outputs task results as a YAML sequence
func (f *YAMLFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	output := make([]map[string]interface{}, len(results))
	for i, result := range results {
		output[i] = resultItem(result)
	}
	return f.Format(w, output)
}

// FormatStats outputs pool statistics as a YAML sequence
func (f *YAMLFormatter) FormatStats(w io.Writer, stats []executor.Stats) error {
	return f.Format(w, statsViews(stats))
}
