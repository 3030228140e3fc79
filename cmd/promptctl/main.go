// Command promptctl browses the topic catalog and composes prompts offline.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"promptdoumi/internal/catalog"
	"promptdoumi/internal/featureflags"
	"promptdoumi/internal/prompt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptctl",
		Short:         "Browse prompt topics and compose prompts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("feature-flags", "", "feature flags, e.g. topic_coding=on (env FEATURE_FLAGS)")
	_ = viper.BindPFlag("FEATURE_FLAGS", root.PersistentFlags().Lookup("feature-flags"))
	viper.AutomaticEnv()

	root.AddCommand(newTopicsCmd(), newOptionsCmd(), newComposeCmd())
	return root
}

func loadRegistry() (*catalog.Registry, error) {
	return catalog.Load(featureflags.NewManager(viper.GetString("FEATURE_FLAGS")))
}

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List topics in display order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS")
			for _, t := range reg.Topics() {
				status := "open"
				if t.Disabled {
					status = "disabled"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Title, status)
			}
			return w.Flush()
		},
	}
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options [mode]",
		Short: "Show the option groups of a builder mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			mode := ""
			if len(args) == 1 {
				mode = args[0]
			}
			topic := reg.TopicForMode(mode)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", topic.Title, topic.ID)
			for _, g := range reg.OptionsFor(topic.ID) {
				fmt.Fprintf(out, "\n%s\n", g.Label)
				for _, o := range g.Options {
					if o.Label == o.Value {
						fmt.Fprintf(out, "  - %s\n", o.Value)
					} else {
						fmt.Fprintf(out, "  - %s = %s\n", o.Label, o.Value)
					}
				}
			}
			return nil
		},
	}
}

func newComposeCmd() *cobra.Command {
	var (
		mode    string
		base    string
		selects []string
	)
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a prompt from base text and option selections",
		Example: `  promptctl compose --mode image --base "a cat" --select "화풍/스타일=Anime"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			topic := reg.TopicForMode(mode)

			sel := prompt.NewSelections()
			for _, raw := range selects {
				label, value, ok := strings.Cut(raw, "=")
				if !ok {
					return fmt.Errorf("selection %q must look like label=value", raw)
				}
				group, ok := reg.Group(topic.ID, label)
				if !ok {
					return fmt.Errorf("mode %s has no option group %q", topic.ID, label)
				}
				if value != "" {
					opt, ok := group.Resolve(value)
					if !ok {
						return fmt.Errorf("%q is not an option of %s", value, label)
					}
					value = opt.Value
				}
				sel.Set(label, value)
			}

			fmt.Fprintln(cmd.OutOrStdout(), prompt.Compose(base, sel))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "builder mode (topic id)")
	cmd.Flags().StringVar(&base, "base", "", "base text")
	cmd.Flags().StringArrayVar(&selects, "select", nil, "selection as label=value (repeatable)")
	return cmd
}
