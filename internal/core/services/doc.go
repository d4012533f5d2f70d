// Package services holds the study pipeline: ingestion turns an upload into
// chunks, vectors and a metadata row; retrieval ranks a document's chunks
// against a query; the study service builds mode prompts from those chunks
// and parses what the LLM returns.
//
// Every service talks to storage and AI providers through driven ports only.
package services
