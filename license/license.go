// Package license decrypts and validates the AES-128-CBC license blob
// against this host's machine fingerprint and the enabled-machine count.
package license

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ErrLicenseInvalid covers every validation failure: bad blob, wrong
// fingerprint, or exceeded machine count. The cycle loop treats this as a
// transient condition and retries rather than crashing.
var ErrLicenseInvalid = errors.New("license: invalid")

const keySize = 16 // AES-128

// License is the decrypted license payload.
type License struct {
	CompanyName  string
	Location     string
	ServerUniqID string
	TotalLicense int
}

// loadKeyMaterial reads an env var and zero-pads it to keySize bytes,
// matching the worker's AES-128-CBC key/IV convention. A value longer than
// keySize is rejected.
func loadKeyMaterial(envVar string) ([]byte, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil, fmt.Errorf("license: %s not set", envVar)
	}
	if len(raw) > keySize {
		return nil, fmt.Errorf("license: %s exceeds %d bytes", envVar, keySize)
	}
	buf := make([]byte, keySize)
	copy(buf, raw)
	return buf, nil
}

// Decrypt base64-decodes blob, AES-128-CBC decrypts it with the key/IV
// loaded from LICENSE_SECRET_KEY and LICENSE_IV, strips PKCS#7 padding,
// and parses the resulting "CompanyName/Location/ServerUniqID/TotalLicense"
// line.
func Decrypt(blob string) (*License, error) {
	key, err := loadKeyMaterial("LICENSE_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	iv, err := loadKeyMaterial("LICENSE_IV")
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %v", ErrLicenseInvalid, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrLicenseInvalid)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseInvalid, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = unpad(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseInvalid, err)
	}

	return parse(string(plaintext))
}

// Encrypt is the inverse of Decrypt, used by tests to build round-trip
// fixtures against the same key/IV convention.
func Encrypt(l *License) (string, error) {
	key, err := loadKeyMaterial("LICENSE_SECRET_KEY")
	if err != nil {
		return "", err
	}
	iv, err := loadKeyMaterial("LICENSE_IV")
	if err != nil {
		return "", err
	}

	plain := []byte(fmt.Sprintf("%s/%s/%s/%d", l.CompanyName, l.Location, l.ServerUniqID, l.TotalLicense))
	padded := pad(plain, aes.BlockSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func parse(plain string) (*License, error) {
	parts := strings.Split(plain, "/")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: expected 4 fields, got %d", ErrLicenseInvalid, len(parts))
	}
	total, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid total license count: %v", ErrLicenseInvalid, err)
	}
	return &License{
		CompanyName:  parts[0],
		Location:     parts[1],
		ServerUniqID: parts[2],
		TotalLicense: total,
	}, nil
}

func pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}

// Validate checks that the license's ServerUniqID matches this host's
// fingerprint hash and that enabledMachines does not exceed TotalLicense.
func Validate(l *License, enabledMachines int) error {
	// MachineFingerprint already returns a lowercase hex sha256 digest, so
	// the comparison is direct rather than hashing a second time.
	fingerprint, err := MachineFingerprint()
	if err != nil {
		return fmt.Errorf("%w: fingerprint: %v", ErrLicenseInvalid, err)
	}
	if l.ServerUniqID != fingerprint {
		return fmt.Errorf("%w: server uniq id mismatch", ErrLicenseInvalid)
	}
	if enabledMachines > l.TotalLicense {
		return fmt.Errorf("%w: %d enabled machines exceeds license limit %d", ErrLicenseInvalid, enabledMachines, l.TotalLicense)
	}
	return nil
}

// MachineFingerprint reads /host-machine-id, falling back to
// /etc/machine-id, falling back to sha256(hostname|platform|arch|cpu), and
// always returns a lowercase hex sha256 digest.
func MachineFingerprint() (string, error) {
	for _, path := range []string{"/host-machine-id", "/etc/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			id := strings.TrimSpace(string(data))
			if id != "" {
				return sha256Hex(id), nil
			}
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	cpuModel := firstCPUModel()
	seed := fmt.Sprintf("%s|%s|%s|%s", hostname, runtime.GOOS, runtime.GOARCH, cpuModel)
	return sha256Hex(seed), nil
}

// firstCPUModel reads the first "model name" line from /proc/cpuinfo,
// falling back to the empty string on platforms without it.
func firstCPUModel() string {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "model name") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
