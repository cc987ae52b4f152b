package main

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/go-etl/pkg/pipeline/processor"
	"github.com/askiada/go-etl/pkg/pipeline/registry"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the built-in inputs, transforms and outputs with their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			printNamespace(out, "inputs", registry.Inputs())
			printNamespace(out, "transforms", registry.Transforms())
			printNamespace(out, "outputs", registry.Outputs())

			return nil
		},
	}
}

func printNamespace[M processor.Module](w io.Writer, title string, modules map[string]M) {
	fmt.Fprintf(w, "%s:\n", title)

	kinds := make([]string, 0, len(modules))
	for kind := range modules {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s\n", kind)

		args := modules[kind].DefaultArgs()
		names := make([]string, 0, len(args))

		for name := range args {
			names = append(names, name)
		}

		slices.Sort(names)

		for _, name := range names {
			desc := args[name]
			flags := []string{}

			if desc.Required {
				flags = append(flags, "required")
			}

			if desc.HasDefault {
				flags = append(flags, fmt.Sprintf("default %v", desc.Default))
			}

			if len(desc.ValidValues) > 0 {
				flags = append(flags, fmt.Sprintf("one of %v", desc.ValidValues))
			}

			fmt.Fprintf(w, "    %-12s %s\n", name, strings.Join(flags, ", "))
		}
	}
}
