//go:build ocr

package extraction

import "code.sajari.com/docconv"

// Uploaded scans are overwhelmingly Spanish-language records, so the OCR
// engine gets a fixed source-language hint.
func init() {
	docconv.SetImageLanguages("spa")
}
