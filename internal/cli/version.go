package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/taskpool/internal/output"
	"github.com/aryankumar/taskpool/pkg/version"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display build version, commit and platform of the taskpool binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}

	return cmd
}

func runVersion(cmd *cobra.Command) error {
	info := version.Get()
	w := cmd.OutOrStdout()

	name := viper.GetString("output")
	if name == "" {
		fmt.Fprintln(w, info.String())
		return nil
	}

	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format, output.WithNoColor(viper.GetBool("no-color")))
	if format == output.FormatTable {
		return formatter.Format(w, info.Map())
	}
	return formatter.Format(w, info)
}
