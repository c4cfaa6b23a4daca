// Package preprocess turns caller images into the float tensors the
// inference backends consume.
//
// Three steps run per batch:
//
//   - ResizePad brings every image to the batch's target height and width
//     using one of two strategies.
//   - Normalize converts 8-bit pixels to 3-channel float32 values.
//   - Combine stacks the normalized images into one NHWC tensor.
//
// # Resize Strategies
//
// PadRight is used for text recognition. The image is scaled by
// min(targetHeight/height, targetWidth/width), so neither axis overflows.
// Missing height is split between top and bottom with the odd pixel at the
// bottom; missing width is added on the right only so text stays anchored
// at the left edge where the decoder starts reading.
//
// CropPadRight is used for rotation classification. Images wider than the
// model's aspect ratio are first center-cropped to that ratio, then scaled
// to the target height and right-padded.
//
// # Normalization
//
// Each channel is mapped with
//
//	value = raw/255*Scale[c] - Bias[c]
//
// DefaultParams uses Scale 2 and Bias 1, which yields [-1, 1]. PadValue is
// the normalized value of a black pixel and is what Combine writes into
// padding.
//
// # Buffer Ownership
//
// NormalizedImage data comes from the tensor pool. Combine consumes its
// inputs and releases them; callers that abandon a batch before Combine
// must Release what they built. The combined tensor belongs to the caller.
package preprocess
