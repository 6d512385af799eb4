package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the active mode/scope/project identifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if jsonOutput {
			return emitJSON(map[string]any{
				"mode":    e.lctx.Mode,
				"scope":   e.lctx.Scope,
				"project": e.lctx.Project,
			})
		}
		fmt.Printf("mode:    %s\n", orNone(e.lctx.Mode))
		fmt.Printf("scope:   %s\n", orNone(e.lctx.Scope))
		fmt.Printf("project: %s\n", orNone(e.lctx.Project))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

// identifierRefPrefix is the refs/overlay/layers/... prefix under which a
// mode/scope/project identifier's base layer (and anything nested beneath
// it) lives, used by `list` and `delete`.
func identifierRefPrefix(kind, name string) string {
	return "refs/overlay/layers/" + kind + "/" + name
}

// contextField returns a pointer to the layer.Context field matching kind
// ("mode", "scope", or "project"), so the create/use/unset commands below
// can share one implementation across all three identifier kinds.
func contextField(ctx *env, kind string) *string {
	switch kind {
	case "mode":
		return &ctx.lctx.Mode
	case "scope":
		return &ctx.lctx.Scope
	case "project":
		return &ctx.lctx.Project
	default:
		panic("unknown identifier kind " + kind)
	}
}

// newIdentifierCommand builds the create/use/unset/delete/list command
// group for one context identifier kind ("mode", "scope", or "project").
// create and use are identical: both just set the active identifier, since
// a mode/scope/project has no registry entry of its own — its base layer is
// materialized lazily by the first commit routed to it (§4.8).
func newIdentifierCommand(kind string) *cobra.Command {
	root := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Lifecycle of the active %s identifier", kind),
	}

	setActive := func(cmd *cobra.Command, name string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		*contextField(e, kind) = name
		if err := saveContext(e.paths.Context, e.lctx); err != nil {
			return err
		}
		if jsonOutput {
			return emitJSON(map[string]any{kind: name})
		}
		if name == "" {
			fmt.Printf("%s unset\n", kind)
		} else {
			fmt.Printf("%s -> %s\n", kind, name)
		}
		return nil
	}

	use := &cobra.Command{
		Use:   "use <name>",
		Short: fmt.Sprintf("Set the active %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0]) },
	}
	create := &cobra.Command{
		Use:   "create <name>",
		Short: fmt.Sprintf("Create and switch to a new %s (lazily materialized on first commit)", kind),
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0]) },
	}
	unset := &cobra.Command{
		Use:   "unset",
		Short: fmt.Sprintf("Clear the active %s", kind),
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, "") },
	}
	del := &cobra.Command{
		Use:   "delete <name>",
		Short: fmt.Sprintf("Delete every ref rooted at the given %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()
			prefix := identifierRefPrefix(kind, args[0])
			refs, err := e.store.ListRefs(ctx, prefix)
			if err != nil {
				return err
			}
			for _, ref := range refs {
				oid, err := e.store.ResolveRef(ctx, ref)
				if err != nil {
					continue
				}
				if err := e.store.DeleteRef(ctx, ref, oid); err != nil {
					return err
				}
			}
			if jsonOutput {
				return emitJSON(map[string]any{"deleted": refs})
			}
			fmt.Printf("deleted %d ref(s) under %s\n", len(refs), prefix)
			return nil
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List every known %s", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			refs, err := e.store.ListRefs(cmd.Context(), "refs/overlay/layers/"+kind+"/")
			if err != nil {
				return err
			}
			names := identifierNames(refs, kind)
			if jsonOutput {
				return emitJSON(map[string]any{kind + "s": names})
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	root.AddCommand(create, use, unset, del, list)
	return root
}

// identifierNames extracts the distinct identifier segment immediately
// following kind in each ref path, e.g.
// "refs/overlay/layers/mode/staging/scope/ci" -> "staging".
func identifierNames(refs []string, kind string) []string {
	prefix := "refs/overlay/layers/" + kind + "/"
	seen := make(map[string]bool)
	var out []string
	for _, ref := range refs {
		rest := strings.TrimPrefix(ref, prefix)
		name := strings.SplitN(rest, "/", 2)[0]
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func init() {
	modeCmd := newIdentifierCommand("mode")
	scopeCmd := newIdentifierCommand("scope")
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(newIdentifierCommand("project"))

	// `modes`/`scopes` are read-only shorthand for `mode list`/`scope list`,
	// named to match the plural form in the command table.
	rootCmd.AddCommand(&cobra.Command{
		Use:   "modes",
		Short: "List every known mode",
		Args:  cobra.NoArgs,
		RunE:  listSubcommand(modeCmd, "list"),
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "scopes",
		Short: "List every known scope",
		Args:  cobra.NoArgs,
		RunE:  listSubcommand(scopeCmd, "list"),
	})
}

func listSubcommand(parent *cobra.Command, name string) func(*cobra.Command, []string) error {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c.RunE
		}
	}
	panic("no " + name + " subcommand on " + parent.Name())
}
