package blooper

import (
	"github.com/PostRockFTW/blooper5-sub000/internal/fxproc"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
	"github.com/PostRockFTW/blooper5-sub000/internal/sources"
)

// DefaultRegistry returns a registry with every built-in instrument and
// effect installed. Factories panic only on programmer error (invalid
// metadata in a built-in), so registration failures are fatal here.
func DefaultRegistry() *plug.Registry {
	r := plug.NewRegistry()
	mustRegisterSource(r, func() plug.Source { return sources.NewDualOsc() })
	mustRegisterSource(r, func() plug.Source { return sources.NewNoiseDrum() })
	mustRegisterSource(r, func() plug.Source { return sources.NewModalCymbal() })
	mustRegisterEffect(r, func() plug.Effect { return fxproc.NewDelay() })
	mustRegisterEffect(r, func() plug.Effect { return fxproc.NewSpaceReverb() })
	mustRegisterEffect(r, func() plug.Effect { return fxproc.NewEightBandEQ() })
	return r
}

func mustRegisterSource(r *plug.Registry, f plug.SourceFactory) {
	if err := r.RegisterSource(f); err != nil {
		panic(err)
	}
}

func mustRegisterEffect(r *plug.Registry, f plug.EffectFactory) {
	if err := r.RegisterEffect(f); err != nil {
		panic(err)
	}
}
