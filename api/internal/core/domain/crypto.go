package domain

// Sealer defines the contract for the transport confidentiality layer.
// Every HTTP body exchanged between the client glue and the API passes through it.
type Sealer interface {
	// Seal turns plaintext (usually a JSON document) into the opaque wire envelope.
	Seal(plaintext string) (string, error)

	// Open recovers the plaintext. Any failure is a single opaque "unreadable
	// payload" condition for the caller.
	Open(opaque string) (string, error)
}
