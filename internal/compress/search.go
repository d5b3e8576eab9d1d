package compress

// The search walks a two-dimensional space: encoder quality within
// [MinQuality, qualityCeiling] and scale within [MinScale, 1.0]. Quality is
// binary-searched at a fixed scale; only when the floor quality still misses
// the budget does the scale drop geometrically. Every loop is bounded, so the
// search always terminates.

const (
	qualityCeiling    = 95
	maxQualityEncodes = 8
	scaleStep         = 0.9
)

type searchPhase int

const (
	phaseInitial searchPhase = iota
	phaseQualitySearch
	phaseScaleReduction
	phaseAccepted
	phaseBestEffort
)

type candidate struct {
	data    []byte
	size    int64
	quality int
	scale   float64
}

type fitter struct {
	raster *Raster
	target Target

	best        *candidate // smallest encode seen, fallback when infeasible
	encodeCalls int
}

// Fit finds a (quality, scale) pair whose encoded size lands inside the
// target's tolerance band, or the closest achievable result when the budget
// is infeasible. Inputs already at or under the budget are returned
// byte-identical; the engine never inflates an image.
func Fit(src SourceImage, raster *Raster, target Target) (Result, error) {
	target = target.withDefaults()

	if size := int64(len(src.Data)); size <= target.TargetBytes {
		return Result{
			Name:            src.Name,
			Data:            src.Data,
			AchievedBytes:   size,
			Scale:           1.0,
			SatisfiedTarget: true,
			Untouched:       true,
		}, nil
	}

	f := &fitter{raster: raster, target: target}

	var (
		phase    = phaseInitial
		scale    = 1.0
		accepted *candidate
	)
	for phase != phaseAccepted && phase != phaseBestEffort {
		switch phase {
		case phaseInitial:
			phase = phaseQualitySearch

		case phaseQualitySearch:
			c, ok, err := f.qualitySearch(scale)
			if err != nil {
				return Result{}, err
			}
			if ok {
				accepted = c
				phase = phaseAccepted
				break
			}
			phase = phaseScaleReduction

		case phaseScaleReduction:
			if scale <= f.target.MinScale {
				phase = phaseBestEffort
				break
			}
			scale *= scaleStep
			if scale < f.target.MinScale {
				scale = f.target.MinScale
			}
			phase = phaseQualitySearch
		}
	}

	if accepted == nil {
		accepted = f.best
	}
	if accepted == nil {
		// Unreachable in practice: qualitySearch always encodes at least once.
		return Result{}, ErrCorruptImage
	}

	return Result{
		Name:            src.Name,
		Data:            accepted.data,
		AchievedBytes:   accepted.size,
		Quality:         accepted.quality,
		Scale:           accepted.scale,
		SatisfiedTarget: accepted.size <= target.TargetBytes,
		EncodeCalls:     f.encodeCalls,
	}, nil
}

// qualitySearch looks for a fitting quality at a fixed scale. It returns the
// highest-quality candidate at or under the budget, stopping early once a
// candidate lands inside the tolerance band.
func (f *fitter) qualitySearch(scale float64) (*candidate, bool, error) {
	ceil, err := f.encode(qualityCeiling, scale)
	if err != nil {
		return nil, false, err
	}
	if ceil.size <= f.target.TargetBytes {
		return ceil, true, nil
	}

	var (
		lo        = f.target.MinQuality
		hi        = qualityCeiling - 1
		fit       *candidate
		minFailed = qualityCeiling
	)
	for i := 0; i < maxQualityEncodes && lo <= hi; i++ {
		mid := (lo + hi) / 2
		c, err := f.encode(mid, scale)
		if err != nil {
			return nil, false, err
		}
		if c.size > f.target.TargetBytes {
			if mid < minFailed {
				minFailed = mid
			}
			hi = mid - 1
			continue
		}
		fit = c
		if c.size >= f.target.lowerBand() {
			// Inside the band; higher quality was already ruled out above.
			return c, true, nil
		}
		lo = mid + 1
	}
	if fit != nil {
		return fit, true, nil
	}

	// The iteration cap can stop the search before the quality floor was
	// ever probed. One last attempt before giving up on this scale.
	if minFailed > f.target.MinQuality {
		c, err := f.encode(f.target.MinQuality, scale)
		if err != nil {
			return nil, false, err
		}
		if c.size <= f.target.TargetBytes {
			return c, true, nil
		}
	}
	return nil, false, nil
}

func (f *fitter) encode(quality int, scale float64) (*candidate, error) {
	data, err := f.raster.Encode(quality, scale)
	if err != nil {
		return nil, err
	}
	f.encodeCalls++

	c := &candidate{
		data:    data,
		size:    int64(len(data)),
		quality: quality,
		scale:   scale,
	}
	if f.best == nil || c.size < f.best.size {
		f.best = c
	}
	return c, nil
}
