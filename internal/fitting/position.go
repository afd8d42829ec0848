package fitting

import (
	"context"

	"github.com/benshep/imageViewer2/internal/types"
)

// PositionOutput receives accepted fits, e.g. to write them to the control
// system.
type PositionOutput interface {
	SetPosition(ctx context.Context, camera string, axis types.Axis, center, fwhm float64) error
}

// Publish forwards res to out when it is an accepted fit. Unfitted results
// and a nil output are ignored.
func Publish(ctx context.Context, out PositionOutput, camera string, axis types.Axis, res types.FitResult) error {
	if out == nil || !res.Fitted {
		return nil
	}
	return out.SetPosition(ctx, camera, axis, res.Center, res.FWHM)
}
