package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

// keyFile is the on-disk envelope for a passphrase-encrypted private
// key, analogous in spirit to go-ethereum's keystore JSON but trimmed
// to what this module needs: one key, one file.
type keyFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	ScryptN    int    `json:"scrypt_n"`
	ScryptP    int    `json:"scrypt_p"`
}

const (
	scryptKeyLen = 32
	scryptR      = 8
)

// SaveEncrypted writes key to path, encrypted under passphrase with an
// AES-256-GCM cipher keyed by scrypt(passphrase, salt). scryptN/scryptP
// follow go-ethereum's "light" keystore defaults when 0 is passed.
func SaveEncrypted(path string, key PrivateKey, passphrase string, scryptN, scryptP int) error {
	if scryptN == 0 {
		scryptN = 1 << 12
	}
	if scryptP == 0 {
		scryptP = 6
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("identity: generate salt: %w", err)
	}
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return fmt.Errorf("identity: derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return fmt.Errorf("identity: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("identity: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("identity: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, key.Bytes(), nil)

	kf := keyFile{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		ScryptN:    scryptN,
		ScryptP:    scryptP,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("identity: create key directory: %w", err)
	}
	data, err := json.Marshal(kf)
	if err != nil {
		return fmt.Errorf("identity: marshal key file: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadEncrypted reads and decrypts the key file written by
// SaveEncrypted.
func LoadEncrypted(path string, passphrase string) (PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("identity: read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return PrivateKey{}, fmt.Errorf("identity: parse key file: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), kf.Salt, kf.ScryptN, scryptR, kf.ScryptP, scryptKeyLen)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("identity: derive key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("identity: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("identity: new gcm: %w", err)
	}
	raw, err := gcm.Open(nil, kf.Nonce, kf.Ciphertext, nil)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("identity: decrypt key file (wrong passphrase?): %w", err)
	}
	return FromBytes(raw), nil
}
