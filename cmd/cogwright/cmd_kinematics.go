package main

import (
	"github.com/spf13/cobra"

	"github.com/chazu/cogwright/pkg/diagnostics"
	"github.com/chazu/cogwright/pkg/tools"
)

var (
	measureModule float64
	measureTeeth  int
	linkageSolids bool
	diagnoseFix   bool
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Print the pitch circle of a gear, or the pitch line of a rack when --teeth is omitted",
	Args:  cobra.NoArgs,
	RunE:  runMeasure,
}

var linkageCmd = &cobra.Command{
	Use:   "linkage [file]",
	Short: "Solve a rack and pinion linkage from {motionA, motionB} JSON",
	Long: `Reads {"motionA": {...}, "motionB": {...}, "progress": p} from the file or
stdin. Each motion holds initial and final [x, y, z, rx, ry, rz] poses.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLinkage,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [file]",
	Short: "Check a rack and pinion animation model for intersection, drift and phase errors",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiagnose,
}

func init() {
	measureCmd.Flags().Float64Var(&measureModule, "module", 1, "module in mm")
	measureCmd.Flags().IntVar(&measureTeeth, "teeth", 0, "tooth count")
	linkageCmd.Flags().BoolVar(&linkageSolids, "solids", false, "also render tooth solids for every body")
	diagnoseCmd.Flags().BoolVar(&diagnoseFix, "fix", false, "print the model with the recommendations applied instead")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	tb, err := newToolbox()
	if err != nil {
		return err
	}
	in := tools.MeasureInput{Module: measureModule}
	if cmd.Flags().Changed("teeth") {
		in.Teeth = &measureTeeth
	}
	out := tb.MeasureGeometry(cmd.Context(), in)
	return report(cmd, out, out.Error)
}

func runLinkage(cmd *cobra.Command, args []string) error {
	var in tools.LinkageInput
	if err := decodeInput(cmd, args, &in); err != nil {
		return err
	}
	if linkageSolids {
		in.RenderSolids = true
	}
	tb, err := newToolbox()
	if err != nil {
		return err
	}
	out := tb.SolveLinkage(cmd.Context(), in)
	return report(cmd, out, out.Error)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	var m diagnostics.KinematicModel
	if err := decodeInput(cmd, args, &m); err != nil {
		return err
	}
	tb, err := newToolbox()
	if err != nil {
		return err
	}
	out := tb.CheckAnimationIntersections(cmd.Context(), m)
	if diagnoseFix && out.Error == nil {
		return printJSON(cmd, diagnostics.ApplyRecommendation(m, out.Result))
	}
	return report(cmd, out, out.Error)
}

// report prints out and turns an in-band tool failure into a command error.
func report(cmd *cobra.Command, out any, failure *tools.ToolError) error {
	if err := printJSON(cmd, out); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	return nil
}
