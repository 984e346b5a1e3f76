package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/affiance/pkg/buildinfo"
)

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the affiance version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			extended, _ := cmd.Flags().GetBool("extended")
			jsonOutput, _ := cmd.Flags().GetBool("json")
			info := versionInfo{
				Version:   buildinfo.Version(),
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS,
				Arch:      runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, string(data))
				return nil
			}
			_, _ = fmt.Fprintf(out, "affiance %s\n", info.Version)
			if extended {
				_, _ = fmt.Fprintf(out, "Go version: %s\nPlatform: %s/%s\n", info.GoVersion, info.Platform, info.Arch)
			}
			return nil
		},
	}
	cmd.Flags().Bool("extended", false, "Show build information")
	cmd.Flags().Bool("json", false, "Output version information in JSON format")
	return cmd
}
