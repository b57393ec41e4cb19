// Package padfetch downloads remote resources into padded buffers ready
// for SIMD-style JSON parsing.
//
// Two operations are provided. LoadURL performs a GET (following up to
// 10 redirect hops, bounded by a 15 second overall timeout) and returns
// the body in a padbuf.Buffer, whose allocation extends past the logical
// content so block-wise parsers can over-read safely.
// GetActualPayloadSize performs a full GET and reports the body length
// without retaining the bytes.
//
// HTTP status codes are intentionally not interpreted: the body of a 404
// is a payload like any other. Callers that care about status semantics
// should use a Client with their own transport-level handling.
package padfetch
