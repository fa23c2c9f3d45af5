// Package visualization renders simulations for people: a text panel of a snapshot
// and a Graphviz diagram of the phase cycle.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/phase"
	"github.com/samber/lo"
)

// DOTGenerator generates Graphviz DOT diagrams of the phase cycle
type DOTGenerator struct {
	table   []phase.Phase
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowYellow    bool
	RankDirection string // "TB", "LR", "BT", "RL"
	NodeShape     string
	// CurrentPhase highlights one phase; -1 highlights nothing
	CurrentPhase int
}

// DefaultDOTOptions returns the options used when none are given
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowYellow:    true,
		RankDirection: "LR",
		NodeShape:     "box",
		CurrentPhase:  -1,
	}
}

// NewDOTGenerator creates a generator for the fixed two-phase schedule
func NewDOTGenerator(options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		table:   phase.Table[:],
		options: opts,
	}
}

// ForSnapshot returns options highlighting the snapshot's phase
func ForSnapshot(snap core.Snapshot) DOTOptions {
	opts := DefaultDOTOptions()
	if !snap.Offline {
		opts.CurrentPhase = snap.Phase
	}
	return opts
}

// Generate creates the DOT representation
func (g *DOTGenerator) Generate() (string, error) {
	if len(g.table) == 0 {
		return "", fmt.Errorf("phase table is empty")
	}

	var dot strings.Builder

	dot.WriteString("digraph PhaseCycle {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generatePhases(&dot)
	g.generateTransitions(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

func pairLabel(ds []core.Direction) string {
	return strings.Join(lo.Map(ds, func(d core.Direction, _ int) string { return d.String() }), "/")
}

func greenID(p phase.Phase) string {
	return fmt.Sprintf("phase%d", p.Index)
}

func yellowID(p phase.Phase) string {
	return fmt.Sprintf("phase%d_yellow", p.Index)
}

func (g *DOTGenerator) generatePhases(dot *strings.Builder) {
	dot.WriteString("  // Phases\n")

	for _, p := range g.table {
		fillColor := "palegreen"
		label := fmt.Sprintf("%s GREEN\\n%s RED", pairLabel(p.Green), pairLabel(p.Red))
		if p.Index == 0 {
			label += "\\n(initial)"
		}
		if p.Index == g.options.CurrentPhase {
			fillColor = "gold"
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			greenID(p), fillColor, label))

		if g.options.ShowYellow {
			dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=lightyellow label=\"%s YELLOW\\n%s RED\"];\n",
				yellowID(p), pairLabel(p.Green), pairLabel(p.Red)))
		}
	}
}

func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	dot.WriteString("  // Transitions\n")

	for i, p := range g.table {
		next := g.table[(i+1)%len(g.table)]
		if g.options.ShowYellow {
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"green elapsed\"];\n", greenID(p), yellowID(p)))
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"yellow elapsed / cycle++\"];\n", yellowID(p), greenID(next)))
			continue
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"cycle++\"];\n", greenID(p), greenID(next)))
	}
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG converts the diagram by calling the Graphviz dot command
func (g *DOTGenerator) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}
