// Package lanes infers the Lions Gate bridge lane-direction configuration
// from a traffic camera image.
//
// The bridge carries three lanes. A counterflow lane is switched between
// northbound and southbound use during the day and its state is shown by
// illuminated teal lane-control signals that are visible in the camera
// frame. The package decides between the two possible configurations,
// (1 northbound, 2 southbound) and (2 northbound, 1 southbound), by
// looking for those signals.
//
// # Pipeline
//
// Inference runs in a fixed order:
//
//  1. ZoneFor derives a SamplingZone from the image size using fractional
//     bounds (default top 5%, bottom 50%, left 5%, right 95%).
//  2. Sample walks the zone at a fixed stride and classifies every pixel
//     with a Classifier, tagging each sample as LEFT or RIGHT of the
//     image's horizontal midpoint.
//  3. Aggregate turns per-side match counts into a verdict. The right side
//     correlates with the southbound signal, the left with northbound.
//  4. When no signal pixels are found, or the image is missing, Fallback
//     applies a time-of-day schedule instead.
//
// Engine ties these steps together and always yields exactly one
// LaneConfig. It never returns an error for classification reasons.
//
// # Coordinate System
//
// Coordinates follow the image package convention: (0,0) is the top-left
// corner of the bounds, X grows rightward and Y grows downward. Zone edges
// are inclusive at Top/Left and exclusive at Bottom/Right.
//
// # Thread Safety
//
// Classifier, Sample, Aggregate and Fallback are pure. Engine is safe for
// concurrent use; its latest-result slot is replaced atomically and older
// sequence numbers are discarded on Commit.
package lanes
