// Package html extracts readable text from HTML pages with the x/net/html
// parser. Block elements become line breaks; non-visible subtrees are
// dropped and entities decoded.
package html
