// Package ocr defines abstraction layers for plugging third-party OCR
// engines (for example, Tesseract or cloud services) into the slide-checking
// pipeline. The interfaces are intentionally small and transport-agnostic so
// engines can be backed by native libraries, local binaries, or remote APIs
// without leaking provider-specific concerns into callers.
package ocr
