package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/chazu/cogwright/pkg/linkage"
	"github.com/chazu/cogwright/pkg/partlib"
	"golang.org/x/sync/errgroup"
)

// Assembly renders every body of a solved linkage as a tooth solid placed
// at the body's pose. Bodies are rendered concurrently and the result keeps
// their order. Gear phase is carried by the pose, so gears are built as
// unphased library blanks.
func Assembly(ctx context.Context, bodies []linkage.Body, k kernel.Kernel, lib partlib.Library) ([]geom.Geometry, error) {
	out := make([]geom.Geometry, len(bodies))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, b := range bodies {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			s, err := bodySolid(k, lib, b)
			if err != nil {
				return fmt.Errorf("tessellate: body %d (%s): %w", i, b.Role, err)
			}
			m, err := k.ToMesh(s)
			if err != nil {
				return fmt.Errorf("tessellate: body %d (%s): %w", i, b.Role, err)
			}
			out[i] = b.Place(geom.FromMesh(m))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func bodySolid(k kernel.Kernel, lib partlib.Library, b linkage.Body) (kernel.Solid, error) {
	if b.Role == linkage.RoleRack {
		return lib.RackSolid(k, b.Module, b.Teeth)
	}
	return lib.GearBlank(k, b.Module, b.Teeth)
}
