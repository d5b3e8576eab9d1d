package compress

import (
	"bytes"
	"errors"
	"testing"
)

func fitOne(t *testing.T, data []byte, target Target) Result {
	t.Helper()
	raster, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := Fit(SourceImage{Name: "test.jpg", Data: data}, raster, target)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	return res
}

func TestFitKeepsAlreadySmallImages(t *testing.T) {
	data := jpegBytes(t, flatImage(64, 64), 90)
	res := fitOne(t, data, Target{TargetBytes: 100 * 1024})

	if !res.Untouched {
		t.Fatalf("expected untouched result for image under budget")
	}
	if !res.SatisfiedTarget {
		t.Fatalf("expected satisfied target")
	}
	if !bytes.Equal(res.Data, data) {
		t.Fatalf("untouched result must be byte-identical to the input")
	}
	if res.Scale != 1.0 || res.Quality != 0 {
		t.Fatalf("untouched result must report scale=1.0 quality=0, got scale=%v quality=%d", res.Scale, res.Quality)
	}
}

func TestFitShrinksToTarget(t *testing.T) {
	data := jpegBytes(t, noiseImage(512, 512), 95)
	target := Target{TargetBytes: 40 * 1024}
	if int64(len(data)) <= target.TargetBytes {
		t.Fatalf("fixture too small (%d bytes), cannot exercise the search", len(data))
	}

	res := fitOne(t, data, target)

	if !res.SatisfiedTarget {
		t.Fatalf("expected a satisfiable target, got best-effort (achieved=%d)", res.AchievedBytes)
	}
	if res.AchievedBytes > target.TargetBytes {
		t.Fatalf("achieved %d exceeds target %d", res.AchievedBytes, target.TargetBytes)
	}
	if res.AchievedBytes != int64(len(res.Data)) {
		t.Fatalf("achieved bytes %d does not match payload length %d", res.AchievedBytes, len(res.Data))
	}
	if res.Quality < 1 || res.Quality > qualityCeiling {
		t.Fatalf("quality %d out of range", res.Quality)
	}
	if res.Scale <= 0 || res.Scale > 1 {
		t.Fatalf("scale %v out of range", res.Scale)
	}
	if !isJPEG(res.Data) {
		t.Fatalf("compressed output is not a JPEG")
	}
}

func TestFitQualityMonotonicInTarget(t *testing.T) {
	data := jpegBytes(t, noiseImage(512, 512), 95)

	small := fitOne(t, data, Target{TargetBytes: 30 * 1024})
	large := fitOne(t, data, Target{TargetBytes: 120 * 1024})

	if !small.SatisfiedTarget || !large.SatisfiedTarget {
		t.Fatalf("expected both targets satisfiable")
	}
	if large.Quality < small.Quality {
		t.Fatalf("larger budget produced lower quality: %d < %d", large.Quality, small.Quality)
	}
}

func TestFitIdempotent(t *testing.T) {
	target := Target{TargetBytes: 60 * 1024}
	first := fitOne(t, jpegBytes(t, noiseImage(512, 512), 95), target)
	if !first.SatisfiedTarget {
		t.Fatalf("first pass did not satisfy target")
	}

	second := fitOne(t, first.Data, target)
	if !second.Untouched {
		t.Fatalf("re-compressing an in-budget output must keep it untouched")
	}
	if !bytes.Equal(second.Data, first.Data) {
		t.Fatalf("second pass drifted from first pass output")
	}
}

func TestFitTranscodesPNG(t *testing.T) {
	data := pngBytes(t, noiseImage(400, 400))
	res := fitOne(t, data, Target{TargetBytes: 50 * 1024})

	if res.Untouched && int64(len(data)) > 50*1024 {
		t.Fatalf("oversized png must not be returned untouched")
	}
	if !res.SatisfiedTarget {
		t.Fatalf("expected png to fit after jpeg transcode")
	}
	if !isJPEG(res.Data) {
		t.Fatalf("compressed png output must be JPEG")
	}
}

func TestFitBestEffortOnInfeasibleTarget(t *testing.T) {
	data := jpegBytes(t, noiseImage(800, 800), 95)
	target := Target{
		TargetBytes: 2 * 1024,
		MinQuality:  50,
		MinScale:    0.5,
	}

	res := fitOne(t, data, target)

	if res.SatisfiedTarget {
		t.Fatalf("expected best-effort result for infeasible target")
	}
	if len(res.Data) == 0 {
		t.Fatalf("best-effort result must still carry a payload")
	}
	if res.AchievedBytes != int64(len(res.Data)) {
		t.Fatalf("achieved bytes mismatch")
	}
	if res.AchievedBytes >= int64(len(data)) {
		t.Fatalf("best-effort result should still be smaller than the input")
	}
}

func TestTargetValidate(t *testing.T) {
	if err := (Target{TargetBytes: 500}).Validate(); !errors.Is(err, ErrTargetTooSmall) {
		t.Fatalf("expected ErrTargetTooSmall, got %v", err)
	}
	if err := (Target{TargetBytes: 100 * 1024}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTargetDefaults(t *testing.T) {
	tgt := Target{TargetBytes: 100 * 1024}.withDefaults()

	if tgt.ToleranceBytes != 5*1024 {
		t.Fatalf("default tolerance should be 5%% of target, got %d", tgt.ToleranceBytes)
	}
	if tgt.MinQuality != defaultMinQuality || tgt.MinScale != defaultMinScale {
		t.Fatalf("unexpected defaults: %+v", tgt)
	}

	narrow := Target{TargetBytes: 1200, ToleranceBytes: 600}.withDefaults()
	if narrow.lowerBand() < targetFloor {
		t.Fatalf("lower band %d dipped below floor", narrow.lowerBand())
	}
}
