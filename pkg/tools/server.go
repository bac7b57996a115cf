package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// outcome is implemented by every tool output through Failure.
type outcome interface {
	toolError() *ToolError
}

// NewServer registers every tool of t on a new MCP server.
func NewServer(t *Toolbox, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "cogwright", Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name: MeasureGeometry,
		Description: "Derive the pitch circle of a gear ({module, teeth}) or the pitch line of a rack ({module}), " +
			"with the part library's phase metadata.",
	}, handler(t, MeasureGeometry, t.MeasureGeometry))

	mcp.AddTool(s, &mcp.Tool{
		Name: PositionRelative,
		Description: "Compute where a target part must sit relative to a reference part so their pitch " +
			"features touch, as a place expression.",
	}, handler(t, PositionRelative, t.PositionRelative))

	mcp.AddTool(s, &mcp.Tool{
		Name:        CheckAlignment,
		Description: "Report the expected center distance or pitch-line distance and offset vector of a gear or rack pair.",
	}, handler(t, CheckAlignment, t.CheckAlignment))

	mcp.AddTool(s, &mcp.Tool{
		Name: CheckAnimationIntersections,
		Description: "Diagnose a rack and pinion animation for radial intersection, kinematic drift and phase " +
			"misalignment, and recommend a phase correction.",
	}, handler(t, CheckAnimationIntersections, t.CheckAnimationIntersections))

	mcp.AddTool(s, &mcp.Tool{
		Name: SolveLinkage,
		Description: "Infer a rolling contact between a translating and a rotating motion and build an " +
			"animatable rack and pinion assembly, inserting an idler when the stock pinion does not fit.",
	}, handler(t, SolveLinkage, t.SolveLinkage))

	mcp.AddTool(s, &mcp.Tool{
		Name:        EvaluateScript,
		Description: "Evaluate a design script, validate its declared meshes and list its parts and parameters.",
	}, handler(t, EvaluateScript, t.EvaluateScript))

	return s
}

// handler adapts a tool method to the MCP handler signature and logs one
// line per call.
func handler[In any, Out outcome](t *Toolbox, name string, call func(context.Context, In) Out) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		out := call(ctx, in)

		fields := []zap.Field{
			zap.String("tool", name),
			zap.Duration("elapsed", time.Since(start)),
		}
		if te := out.toolError(); te != nil {
			t.log.Warn("tool call failed", append(fields,
				zap.String("kind", te.Kind),
				zap.String("field", te.Field),
				zap.String("message", te.Message))...)
		} else {
			t.log.Info("tool call", fields...)
		}
		return nil, out, nil
	}
}

// Serve runs s on transport until ctx is done or the client disconnects.
func Serve(ctx context.Context, s *mcp.Server, transport mcp.Transport) error {
	err := s.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ServeStdio serves on stdin and stdout.
func ServeStdio(ctx context.Context, s *mcp.Server) error {
	return Serve(ctx, s, &mcp.StdioTransport{})
}
