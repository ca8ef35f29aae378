package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource = "bfc/source/v1"
	DomainOutput = "bfc/output/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashSource computes the content-addressed identity of a program from its
// canonical instruction text (the source with non-instruction bytes
// discarded). Two files carrying the same instruction stream hash
// identically regardless of comments or layout.
func HashSource(canonical []byte) string {
	return hashWithDomain(DomainSource, canonical)
}

// HashOutput computes the content-addressed identity of a run's output
// bytes. The run-history store compares output hashes to verify replays.
func HashOutput(output []byte) string {
	return hashWithDomain(DomainOutput, output)
}
