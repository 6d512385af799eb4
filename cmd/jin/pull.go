package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/objstore/gitback"
	"github.com/dabstractor/jin/internal/pullmerge"
	"github.com/dabstractor/jin/internal/textmerge"
	"github.com/dabstractor/jin/internal/txn"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch, then reconcile every active layer ref against its remote tracking ref",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		gb, ok := e.store.(*gitback.Store)
		if !ok {
			return jinerr.Newf(jinerr.RemoteError, "pull requires the git-backed object store")
		}

		ctx := cmd.Context()
		mgr := txn.New(e.store, e.paths.WalDir)
		active := layer.ActiveLayers(e.lctx, e.localDirExists())

		report := make(map[string]string, len(active))
		var conflictPaths []string

		for _, l := range active {
			ref, err := layer.RefPath(l, e.lctx)
			if err != nil {
				continue
			}
			if _, err := gb.Fetch(ctx, ref); err != nil {
				return jinerr.New(jinerr.RemoteError, err).WithRef(ref)
			}
			trackingRef := "refs/overlay/remotes/" + gitback.RemoteName + ref[len("refs/overlay"):]

			localOID, _ := e.store.ResolveRef(ctx, ref)
			remoteOID, err := e.store.ResolveRef(ctx, trackingRef)
			if err != nil {
				report[l.String()] = "no-remote"
				continue
			}

			class, ancestor, err := pullmerge.Classify(ctx, e.store, localOID, remoteOID)
			if err != nil {
				return err
			}
			report[l.String()] = class.String()

			var newOID objstore.OID
			switch class {
			case pullmerge.UpToDate:
				continue
			case pullmerge.FastForward:
				newOID = remoteOID
			case pullmerge.LocalAhead:
				continue
			case pullmerge.Divergent:
				localCommit, err := e.store.GetCommit(ctx, localOID)
				if err != nil {
					return jinerr.New(jinerr.IoError, err)
				}
				remoteCommit, err := e.store.GetCommit(ctx, remoteOID)
				if err != nil {
					return jinerr.New(jinerr.IoError, err)
				}
				var ancestorTree objstore.OID
				if ancestor != "" {
					if ac, err := e.store.GetCommit(ctx, ancestor); err == nil {
						ancestorTree = ac.Tree
					}
				}
				merged, summary, err := pullmerge.Merge3(ctx, e.store, ancestorTree, localCommit.Tree, remoteCommit.Tree, localOID, remoteOID, e.actor)
				if err != nil {
					return err
				}
				newOID = merged
				for _, c := range summary.Conflicts {
					artifact := textmerge.FormatConflictArtifact(c.Base, c.Ours, c.Theirs, c.Binary)
					path := e.paths.Root + "/" + c.Path + ".conflict"
					if err := atomicio.WriteFile(path, artifact, 0o644); err != nil {
						return jinerr.New(jinerr.IoError, err).WithPath(c.Path)
					}
					conflictPaths = append(conflictPaths, c.Path)
				}
			}

			if err := mgr.Run(ctx, []txn.RefUpdate{{Ref: ref, OldOID: localOID, NewOID: newOID}}); err != nil {
				return err
			}
		}

		if jsonOutput {
			return emitJSON(map[string]any{"layers": report, "conflicts": conflictPaths})
		}
		for l, status := range report {
			fmt.Printf("%s: %s\n", l, status)
		}
		if len(conflictPaths) > 0 {
			fmt.Printf("conflicts recorded for: %v (see .conflict artifacts)\n", conflictPaths)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
