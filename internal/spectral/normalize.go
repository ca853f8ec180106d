package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Mode identifies which normalization produced a spectrum.
type Mode string

const (
	ModeCloth    Mode = "CLOTH"
	ModeBaseline Mode = "BASELINE"
	ModeZScore   Mode = "ZSCORE"
)

// PolicyAuto selects the full CLOTH -> BASELINE -> ZSCORE cascade; any mode
// name forces that single normalization.
const PolicyAuto = "AUTO"

// RefNone is recorded when a normalization used no reference file.
const RefNone = "NONE"

const (
	// refEpsilon floors reference denominators so dark reference bands
	// cannot blow up the ratio.
	refEpsilon = 1e-9
	// ClipLow and ClipHigh bound ratio-normalized reflectance. Values
	// outside this range in a persisted spectrum mean someone edited the
	// file after export.
	ClipLow  = 0.0
	ClipHigh = 2.0
	// zeroStdFloor guards the z-score against constant curves: anything
	// below it is treated as unit spread so output stays finite.
	zeroStdFloor = 1e-10
)

// ParseMode validates a mode string as recorded in spectrum files.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCloth, ModeBaseline, ModeZScore:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown normalization mode %q", s)
	}
}

// Inputs carries one sample spectrum plus whatever references are available
// for it. A nil curve means the reference is unavailable.
type Inputs struct {
	Sample       []float64
	Cloth        []float64
	ClothFile    string
	Baseline     []float64
	BaselineFile string
}

// Outcome is the result of normalizing one sample spectrum.
type Outcome struct {
	Mode    Mode
	Values  []float64
	RefFile string
}

// Normalize applies the configured policy to the sample. Under PolicyAuto the
// cascade tries CLOTH, then BASELINE, then ZSCORE, and the first applicable
// normalization wins; ZSCORE always applies, so AUTO cannot fail on an
// otherwise valid sample. A forced CLOTH or BASELINE errors when its
// reference is unavailable or does not match the sample's band count.
func Normalize(policy string, in Inputs) (Outcome, error) {
	if len(in.Sample) == 0 {
		return Outcome{}, fmt.Errorf("empty sample spectrum")
	}

	switch policy {
	case PolicyAuto:
		if clothApplicable(in) {
			return clothOutcome(in), nil
		}
		if baselineApplicable(in) {
			return baselineOutcome(in), nil
		}
		return zscoreOutcome(in), nil
	case string(ModeCloth):
		if len(in.Cloth) == 0 {
			return Outcome{}, fmt.Errorf("cloth reference unavailable")
		}
		if len(in.Cloth) != len(in.Sample) {
			return Outcome{}, fmt.Errorf("cloth reference has %d bands, sample has %d", len(in.Cloth), len(in.Sample))
		}
		return clothOutcome(in), nil
	case string(ModeBaseline):
		if len(in.Baseline) == 0 {
			return Outcome{}, fmt.Errorf("baseline curve unavailable")
		}
		if len(in.Baseline) != len(in.Sample) {
			return Outcome{}, fmt.Errorf("baseline curve has %d bands, sample has %d", len(in.Baseline), len(in.Sample))
		}
		return baselineOutcome(in), nil
	case string(ModeZScore):
		return zscoreOutcome(in), nil
	default:
		return Outcome{}, fmt.Errorf("unknown normalization policy %q", policy)
	}
}

func clothApplicable(in Inputs) bool {
	return len(in.Cloth) > 0 && len(in.Cloth) == len(in.Sample)
}

func baselineApplicable(in Inputs) bool {
	return len(in.Baseline) > 0 && len(in.Baseline) == len(in.Sample)
}

func clothOutcome(in Inputs) Outcome {
	ref := in.ClothFile
	if ref == "" {
		ref = RefNone
	}
	return Outcome{Mode: ModeCloth, Values: ratioNormalize(in.Sample, in.Cloth), RefFile: ref}
}

func baselineOutcome(in Inputs) Outcome {
	ref := in.BaselineFile
	if ref == "" {
		ref = RefNone
	}
	return Outcome{Mode: ModeBaseline, Values: ratioNormalize(in.Sample, in.Baseline), RefFile: ref}
}

func zscoreOutcome(in Inputs) Outcome {
	return Outcome{Mode: ModeZScore, Values: zscoreNormalize(in.Sample), RefFile: RefNone}
}

// ratioNormalize divides sample by reference band-wise with the epsilon
// floor, clipping the result to [ClipLow, ClipHigh]. NaN in either operand
// propagates so downstream validation can identify the file.
func ratioNormalize(sample, ref []float64) []float64 {
	out := make([]float64, len(sample))
	for i, v := range sample {
		denom := ref[i]
		if denom < refEpsilon {
			denom = refEpsilon
		}
		r := v / denom
		if r < ClipLow {
			r = ClipLow
		} else if r > ClipHigh {
			r = ClipHigh
		}
		out[i] = r
	}
	return out
}

// zscoreNormalize centers the curve to zero mean and unit spread. Constant
// curves yield all zeros rather than NaN.
func zscoreNormalize(sample []float64) []float64 {
	mean, std := stat.MeanStdDev(sample, nil)
	if !(std > zeroStdFloor) {
		std = 1.0
	}
	out := make([]float64, len(sample))
	for i, v := range sample {
		out[i] = (v - mean) / std
	}
	return out
}
