// Package tesseract recognizes text-line images with the Tesseract OCR
// engine (via gosseract/v2) behind the same batched contract as the
// neural recognizer.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A custom tessdata directory can be set with WithTessdata.
//
// # Results
//
// Each image is treated as a single text line. Text has surrounding
// whitespace trimmed. Score is the mean word confidence scaled to 0..1, or
// NaN when nothing was recognized. Tesseract has no per-character
// probabilities, so CharScores holds the per-word confidences instead.
//
// # Concurrency
//
// A gosseract client is not safe for concurrent use. RunBatched creates
// one client per chunk and runs up to the engine's concurrency chunks at
// once.
package tesseract
