// Package imaging provides the image plumbing around lane inference.
//
// It loads and decodes camera frames and sign images, describes pixel colors
// in several representations, crops and scales regions of interest, and
// renders debug overlays of the sampling zone. Decisions about what the
// pixels mean live in package lanes; this package only moves pixels around.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left) and Max is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Color Representation
//
// Colors are returned in multiple formats:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Empty or out-of-bounds regions
//   - File I/O and decoding errors
//   - Encoding errors during image output
package imaging
