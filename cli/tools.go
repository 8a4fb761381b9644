package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/registry"
	"github.com/loomworks/loom/tools"
)

// NewToolsCmd creates the "tools" subcommand.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the registered processing tools",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

type toolInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func runTools(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	// Listing needs names, kinds, and descriptions only, so the tools are
	// constructed without backing stores or an LLM client.
	reg := registry.New()
	tools.RegisterAll(reg, tools.Deps{Logger: resolveLogger(cmd)})

	infos := make([]toolInfo, 0, reg.Len())
	for _, t := range reg.All() {
		infos = append(infos, toolInfo{
			Name:        t.Name(),
			Kind:        t.Kind().String(),
			Description: t.Description(),
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "text":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tDESCRIPTION")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Kind, info.Description)
		}
		return w.Flush()
	default:
		return exitError(exitInputParse, "unknown format %q (use text or json)", format)
	}
}
