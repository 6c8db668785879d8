//go:build !linux && !darwin

package guardian

import (
	"context"
	"time"
)

// zeroSampler reports no resource usage. Memory and CPU ceilings are
// effectively disabled on platforms without a sampler backend; the
// guardian still enforces the wall-clock timeout.
type zeroSampler struct{}

func newPlatformSampler(int) TreeSampler {
	return zeroSampler{}
}

func (zeroSampler) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	return Sample{Taken: time.Now()}, nil
}
