package auth

import "chat-hub/contract"

// Protector bundles password hashing and payload encryption behind
// the contract.Protector interface used by the services.
type Protector struct {
	cipher *Cipher
	params HashParams
}

var _ contract.Protector = (*Protector)(nil)

func NewProtector(cipher *Cipher, params HashParams) *Protector {
	return &Protector{cipher: cipher, params: params}
}

func (p *Protector) Hash(password string) (string, error) {
	return HashPassword(password, p.params)
}

func (p *Protector) Verify(password, hash string) (bool, error) {
	return ComparePassword(password, hash)
}

func (p *Protector) Encrypt(plaintext string) (string, error) {
	return p.cipher.Encrypt(plaintext)
}

func (p *Protector) Decrypt(ciphertext string) (string, error) {
	return p.cipher.Decrypt(ciphertext)
}
