package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
)

var resolveAccept string

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Show a conflict artifact and optionally accept one side",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		artifactPath := filepath.Join(e.paths.Root, args[0]+".conflict")
		data, err := os.ReadFile(artifactPath)
		if err != nil {
			return jinerr.New(jinerr.IoError, err).WithPath(args[0])
		}

		if resolveAccept == "" {
			return renderConflict(args[0], data)
		}

		side, err := extractConflictSide(data, resolveAccept)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(e.paths.Root, args[0])
		if err := os.WriteFile(targetPath, side, 0o644); err != nil {
			return jinerr.New(jinerr.IoError, err).WithPath(args[0])
		}
		if err := os.Remove(artifactPath); err != nil {
			return jinerr.New(jinerr.IoError, err).WithPath(artifactPath)
		}

		if jsonOutput {
			return emitJSON(map[string]any{"resolved": args[0], "accepted": resolveAccept})
		}
		fmt.Printf("resolved %s (kept %s)\n", args[0], resolveAccept)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAccept, "accept", "", "accept one side without editing: ours or theirs")
	rootCmd.AddCommand(resolveCmd)
}

// renderConflict pretty-prints a conflict artifact through glamour by
// wrapping its base/ours/theirs sections as a fenced markdown document.
func renderConflict(path string, data []byte) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# conflict: %s\n\n```\n%s\n```\n", path, string(data))

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	out, err := r.Render(b.String())
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}

// extractConflictSide pulls the OURS or THEIRS block out of a conflict
// artifact produced by internal/textmerge.FormatConflictArtifact.
func extractConflictSide(data []byte, side string) ([]byte, error) {
	marker := map[string]string{"ours": "--- OURS ---", "theirs": "--- THEIRS ---"}[side]
	if marker == "" {
		return nil, fmt.Errorf("--accept must be \"ours\" or \"theirs\", got %q", side)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var collecting bool
	var out strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if collecting && strings.HasPrefix(line, "--- ") {
			break
		}
		if collecting {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		if line == marker {
			collecting = true
		}
	}
	if !collecting && out.Len() == 0 {
		return nil, jinerr.Newf(jinerr.ParseError, "conflict artifact has no %s section", side)
	}
	return []byte(out.String()), nil
}
