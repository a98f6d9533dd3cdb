// Package batch runs one operation over many message ids and reports a
// per-id outcome instead of failing the whole request.
package batch
