package mathx

// Lerp returns a + (b-a)*t. t is not clamped.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// MapRange maps x in [inMin,inMax] to [outMin,outMax].
// Input outside the range is clamped first; a degenerate input range yields outMin.
func MapRange(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	x = Clamp(x, inMin, inMax)
	return outMin + (x-inMin)/(inMax-inMin)*(outMax-outMin)
}
