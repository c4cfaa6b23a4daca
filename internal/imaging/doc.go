// Package imaging provides the owned pixel type and the raster operations
// used by the OCR pipeline.
//
// Images enter the pipeline as *Image values: an interleaved 8-bit buffer
// with 1 (gray), 3 (RGB) or 4 (RGBA) channels. Decoded standard library
// images are converted with FromImage; files are read through ImageCache.
// Resampling, cropping, padding and rotation are delegated to
// github.com/disintegration/imaging through an NRGBA round trip.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Channel Conversion
//
// ToRGB is the single place where channel counts are reconciled:
//   - 3 channels: returned unchanged (the same pointer, treat as read-only)
//   - 4 channels: alpha is dropped
//   - 1 channel: gray is replicated into R, G and B
//   - anything else: an unsupported format error carrying the image index
//
// FromImage keeps four channels only for RGBA-family images that are not
// opaque, so decoded PNGs without transparency arrive as RGB.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Operations other than
// Rotate180InPlace never modify their input and can run concurrently on
// the same image.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Invalid region specifications (x1 >= x2 or y1 >= y2)
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
