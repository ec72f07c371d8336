// Package output renders taskpool CLI results.
//
// Three formats are supported: a borderless table, indented JSON and YAML.
// Every Formatter renders arbitrary values, the results of a task batch and
// pool statistics snapshots.
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithWide(true))
//	formatter.FormatStats(os.Stdout, []executor.Stats{pool.Stats()})
//	formatter.FormatResults(os.Stdout, executor.Collect(futures))
//
// Table output is colored when writing to a terminal unless WithNoColor is
// set. Piped output is never colored.
package output
