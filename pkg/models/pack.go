package models

// PackResult is the output of one external pack operation.
type PackResult struct {
	Output []byte
	Stats  PackStats
}
