package gateways

import "context"

// SignatureVerifier checks detached OpenPGP signatures of cached artifacts
type SignatureVerifier interface {
	// ImportKeyFromFile adds the keys of an armored or binary keyring file
	ImportKeyFromFile(keyPath string) error

	// ImportKeysFromURL adds every key of a published KEYS file
	ImportKeysFromURL(ctx context.Context, keysURL string) error

	// VerifyFile checks filePath against the detached signature at sigPath
	VerifyFile(filePath, sigPath string) error

	// KeyringSize returns the number of loaded keys
	KeyringSize() int
}
