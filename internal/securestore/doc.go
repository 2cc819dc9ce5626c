// Package securestore is a sealed key/value store keyed off the device
// identity.
//
// Values are sealed with XChaCha20-Poly1305 under a key derived by HKDF
// from the device id. When the platform withholds the id, a configured
// fallback secret is used instead; with neither, opening the store fails.
// The item key is bound as additional data so a ciphertext cannot be
// replayed under another key.
package securestore
