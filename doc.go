// Package wallet runs the attestation protocol between peers: a subject requests an
// attestation of an attribute value from an authority, stores it, and later convinces a
// verifier that the attested value equals (Boneh-exact formats) or lies within a range of
// (Peng-Bao formats) some value, through rounds of challenges the verifier turns into a
// certainty. Authorities revoke attestations through signed updates broadcast to peers.
//
// Peers exchange the payloads of package payload, framed by a one-byte message id, over a
// Transport supplied by the caller. See community_test.go for a complete exchange.
package wallet
