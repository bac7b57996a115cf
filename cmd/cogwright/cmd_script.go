package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/chazu/cogwright/pkg/kernel/sdfx"
	"github.com/chazu/cogwright/pkg/paramschema"
	"github.com/chazu/cogwright/pkg/studio"
	"github.com/chazu/cogwright/pkg/tools"
)

var (
	scriptParams map[string]string
	renderCells  int
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a design script and print its parts, parameters and diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEval,
}

var paramsCmd = &cobra.Command{
	Use:   "params [file]",
	Short: "Print the parameter schema declared by a design script",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParams,
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a design script to colored triangle meshes as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	for _, c := range []*cobra.Command{evalCmd, renderCmd} {
		c.Flags().StringToStringVarP(&scriptParams, "param", "p", nil, "parameter override name=value (repeatable)")
	}
	renderCmd.Flags().IntVar(&renderCells, "cells", 0, "marching cubes resolution (default kernel resolution)")
}

// overrides parses --param values.
func overrides() (map[string]float64, error) {
	if len(scriptParams) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(scriptParams))
	for name, raw := range scriptParams {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %q is not a number", name, raw)
		}
		out[name] = v
	}
	return out, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	source, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	params, err := overrides()
	if err != nil {
		return err
	}
	tb, err := newToolbox()
	if err != nil {
		return err
	}
	out := tb.EvaluateScript(cmd.Context(), tools.ScriptInput{Source: string(source), Params: params})
	if err := report(cmd, out, out.Error); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("script has %d error(s)", len(out.Errors))
	}
	return nil
}

func runParams(cmd *cobra.Command, args []string) error {
	source, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	params, err := paramschema.Infer(string(source))
	if err != nil {
		return err
	}
	return printJSON(cmd, params)
}

func runRender(cmd *cobra.Command, args []string) error {
	source, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	params, err := overrides()
	if err != nil {
		return err
	}
	lib, err := cfg.Library()
	if err != nil {
		return err
	}
	eng, err := newEngine(lib)
	if err != nil {
		return err
	}
	var k kernel.Kernel
	if renderCells > 0 {
		k = sdfx.NewWithCells(renderCells)
	}
	result := studio.New(eng, k, logger.Named("studio")).Render(cmd.Context(), string(source), params)
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("script has %d error(s)", len(result.Errors))
	}
	return nil
}
