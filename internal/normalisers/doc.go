// Package normalisers turns uploaded files into clean plain text.
//
// Each subpackage provides a driven.Extractor for a family of MIME types.
// The Registry picks the highest-priority extractor for a document, detects
// the MIME type from the file name when the caller did not supply one, and
// cleans the extracted text before it is chunked.
package normalisers
