package sim

import (
	"fmt"
	"math"

	"github.com/crazy3lf/colorconv"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/fluidpanel/config"
	"github.com/pthm-cable/fluidpanel/fluid"
	"github.com/pthm-cable/fluidpanel/frame"
)

// SeedDye writes the initial colour fields. The noise pattern maps simplex noise to a
// hue band so neighbouring cells share similar colours; the uniform pattern sets every
// channel to cfg.Uniform. Boundaries are refreshed afterwards.
func SeedDye(f *frame.Frame, cfg config.DyeConfig) error {
	switch cfg.Pattern {
	case config.PatternUniform:
		for _, c := range frame.Colors {
			f.Field(c).Fill(fluid.Scalar(cfg.Uniform))
		}
		return nil
	case config.PatternNoise:
		return seedNoise(f, cfg)
	default:
		return fmt.Errorf("unknown dye pattern %q", cfg.Pattern)
	}
}

func seedNoise(f *frame.Frame, cfg config.DyeConfig) error {
	noise := opensimplex.NewNormalized(cfg.Seed)
	for i := 0; i < f.Rows(); i++ {
		for j := 0; j < f.Cols(); j++ {
			n := noise.Eval2(float64(j)*cfg.NoiseScale, float64(i)*cfg.NoiseScale)
			hue := math.Mod(n*cfg.HueSpread, 360)
			r, g, b, err := colorconv.HSVToRGB(hue, cfg.Saturation, cfg.Value)
			if err != nil {
				return fmt.Errorf("dye at (%d,%d): %w", i, j, err)
			}
			f.Red.Set(i, j, fluid.Scalar(float32(r)/255))
			f.Green.Set(i, j, fluid.Scalar(float32(g)/255))
			f.Blue.Set(i, j, fluid.Scalar(float32(b)/255))
		}
	}
	for _, c := range frame.Colors {
		f.Field(c).UpdateBoundary()
	}
	return nil
}
