// Package layer defines Jin's closed nine-variant layer enumeration, the
// reference-path template for each object-store-backed variant, and the
// routing table that maps a flag combination to a target layer (§3, §4.8).
package layer

import (
	"fmt"

	"github.com/dabstractor/jin/internal/jinerr"
)

// Layer is the closed enumeration of nine precedence slots. Numeric values
// match §3's precedence order (1 lowest, 9 highest) so callers can sort by
// value directly.
type Layer int

const (
	GlobalBase Layer = iota + 1
	ModeBase
	ModeScope
	ModeScopeProject
	ModeProject
	ScopeBase
	ProjectBase
	UserLocal
	WorkspaceActive
)

// All lists every variant in ascending precedence order, excluding
// WorkspaceActive (never a source of truth, only a composition output).
var All = []Layer{GlobalBase, ModeBase, ModeScope, ModeScopeProject, ModeProject, ScopeBase, ProjectBase, UserLocal}

func (l Layer) String() string {
	switch l {
	case GlobalBase:
		return "global-base"
	case ModeBase:
		return "mode-base"
	case ModeScope:
		return "mode-scope"
	case ModeScopeProject:
		return "mode-scope-project"
	case ModeProject:
		return "mode-project"
	case ScopeBase:
		return "scope-base"
	case ProjectBase:
		return "project-base"
	case UserLocal:
		return "user-local"
	case WorkspaceActive:
		return "workspace-active"
	default:
		return "unknown"
	}
}

// Context carries the active mode/scope/project identifiers for one
// invocation (ProjectContext, §3).
type Context struct {
	SchemaVersion int    `yaml:"schema-version"`
	Mode          string `yaml:"mode,omitempty"`
	Scope         string `yaml:"scope,omitempty"`
	Project       string `yaml:"project,omitempty"`
	LastUpdated   string `yaml:"last-updated,omitempty"`
}

// RefPath returns the object-store reference path for a layer variant that
// is backed by the object store. UserLocal and WorkspaceActive have no ref
// path and return an error.
func RefPath(l Layer, ctx Context) (string, error) {
	switch l {
	case GlobalBase:
		return "refs/overlay/layers/global", nil
	case ModeBase:
		if ctx.Mode == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("mode-base requires an active mode"))
		}
		return "refs/overlay/layers/mode/" + ctx.Mode, nil
	case ModeScope:
		if ctx.Mode == "" || ctx.Scope == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("mode-scope requires an active mode and scope"))
		}
		return "refs/overlay/layers/mode/" + ctx.Mode + "/scope/" + ctx.Scope, nil
	case ModeScopeProject:
		if ctx.Mode == "" || ctx.Scope == "" || ctx.Project == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("mode-scope-project requires mode, scope and project"))
		}
		return "refs/overlay/layers/mode/" + ctx.Mode + "/scope/" + ctx.Scope + "/project/" + ctx.Project, nil
	case ModeProject:
		if ctx.Mode == "" || ctx.Project == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("mode-project requires an active mode and project"))
		}
		return "refs/overlay/layers/mode/" + ctx.Mode + "/project/" + ctx.Project, nil
	case ScopeBase:
		if ctx.Scope == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("scope-base requires an active scope"))
		}
		return "refs/overlay/layers/scope/" + ctx.Scope, nil
	case ProjectBase:
		if ctx.Project == "" {
			return "", jinerr.New(jinerr.MissingContext, fmt.Errorf("project-base requires an active project"))
		}
		return "refs/overlay/layers/project/" + ctx.Project, nil
	default:
		return "", fmt.Errorf("layer %s has no object-store reference", l)
	}
}

// Available reports whether l can be a composition source given ctx (its
// required identifiers are active) and, for UserLocal, whether localDirExists.
func Available(l Layer, ctx Context, localDirExists bool) bool {
	switch l {
	case GlobalBase, ProjectBase:
		return l != ProjectBase || ctx.Project != ""
	case ModeBase:
		return ctx.Mode != ""
	case ModeScope:
		return ctx.Mode != "" && ctx.Scope != ""
	case ModeScopeProject:
		return ctx.Mode != "" && ctx.Scope != "" && ctx.Project != ""
	case ModeProject:
		return ctx.Mode != "" && ctx.Project != ""
	case ScopeBase:
		return ctx.Scope != ""
	case UserLocal:
		return localDirExists
	default:
		return false
	}
}

// ActiveLayers returns every object-store-backed layer available for ctx, in
// ascending precedence order, followed by UserLocal if its directory exists.
func ActiveLayers(ctx Context, localDirExists bool) []Layer {
	var out []Layer
	for _, l := range All {
		if Available(l, ctx, localDirExists) {
			out = append(out, l)
		}
	}
	return out
}

// RouteFlags are the five mutually-constrained routing flags from §4.8.
type RouteFlags struct {
	Global, Local, Mode, Scope, Project bool
}

// routeRow is one entry of the §4.8 routing table, expressed as data so the
// table is auditable against the specification rather than buried in
// conditionals.
type routeRow struct {
	flags  RouteFlags
	target Layer
}

var routingTable = []routeRow{
	{RouteFlags{Global: true}, GlobalBase},
	{RouteFlags{Local: true}, UserLocal},
	{RouteFlags{Mode: true}, ModeBase},
	{RouteFlags{Mode: true, Project: true}, ModeProject},
	{RouteFlags{Mode: true, Scope: true}, ModeScope},
	{RouteFlags{Mode: true, Scope: true, Project: true}, ModeScopeProject},
	{RouteFlags{Scope: true}, ScopeBase},
	{RouteFlags{}, ProjectBase}, // default: nothing specified
}

// Route maps a flag combination plus active context to a target layer, or
// InvalidRouting if the combination matches no table row, or MissingContext
// if the matched layer's required identifiers aren't active.
func Route(flags RouteFlags, ctx Context) (Layer, error) {
	for _, row := range routingTable {
		if row.flags == flags {
			if _, err := RefPath(row.target, ctx); err != nil && row.target != UserLocal {
				return 0, err
			}
			return row.target, nil
		}
	}
	return 0, jinerr.New(jinerr.InvalidRouting, fmt.Errorf("incompatible routing flags: %+v", flags))
}
