package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Module    string            `json:"module"`
	Version   string            `json:"version"`
	Commit    string            `json:"commit"`
	Date      string            `json:"date"`
	Modified  bool              `json:"modified,omitempty"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	Deps      map[string]string `json:"deps,omitempty"`
}

// readBuildInfo merges the ldflags variables with what the toolchain
// embedded. Values set through ldflags win.
func readBuildInfo() buildInfo {
	info := buildInfo{
		Module:    "github.com/vango-dev/propagate",
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	applyBuildInfo(&info, bi)
	return info
}

func applyBuildInfo(info *buildInfo, bi *debug.BuildInfo) {
	if bi.Main.Path != "" {
		info.Module = bi.Main.Path
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	for _, d := range bi.Deps {
		if !trackedDep(d.Path) {
			continue
		}
		if info.Deps == nil {
			info.Deps = make(map[string]string)
		}
		v := d.Version
		if d.Replace != nil {
			v = d.Replace.Version
		}
		info.Deps[d.Path] = v
	}
}

// trackedDep reports whether a dependency is worth showing: the transports
// and telemetry the engine links against.
func trackedDep(path string) bool {
	for _, prefix := range []string{
		"github.com/gorilla/websocket",
		"github.com/go-chi/chi",
		"github.com/prometheus/client_golang",
		"go.opentelemetry.io/otel",
	} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (b buildInfo) print(out io.Writer) {
	fmt.Fprint(out, banner)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Module:     %s\n", b.Module)
	fmt.Fprintf(out, "  Version:    %s\n", b.Version)
	commit := b.Commit
	if b.Modified {
		commit += " (modified)"
	}
	fmt.Fprintf(out, "  Commit:     %s\n", commit)
	fmt.Fprintf(out, "  Built:      %s\n", b.Date)
	fmt.Fprintf(out, "  Go version: %s\n", b.GoVersion)
	fmt.Fprintf(out, "  OS/Arch:    %s\n", b.Platform)
	fmt.Fprintln(out)
}

func versionCmd() *cobra.Command {
	var (
		short  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			info := readBuildInfo()
			switch {
			case short:
				fmt.Fprintln(out, info.Version)
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				info.print(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")

	return cmd
}
