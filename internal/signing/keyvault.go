package signing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/term"

	"sira/internal/sirerr"
)

// UnlockPrivateKey reads a (possibly passphrase-encrypted) private key file
// and returns a path to a plaintext temp copy ssh-keygen can use, deleting
// it via the returned cleanup func. An unencrypted key file (no ".enc"
// suffix) is returned as-is with a no-op cleanup.
//
// Encryption at rest uses chacha20poly1305 with an argon2id-derived key,
// mirroring the control node's password vault.
func UnlockPrivateKey(path string) (plaintextPath string, cleanup func(), err error) {
	if _, err = os.Stat(path); err != nil {
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}
	// Only a file named with the ".enc" suffix (see EncryptKey) is decrypted.
	if len(path) < 4 || path[len(path)-4:] != ".enc" {
		return path, func() {}, nil
	}

	encrypted, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}

	passphrase, err := promptUserForSecret("Enter passphrase for action signing key: ")
	if err != nil {
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}

	plaintext, err := decryptKey(encrypted, passphrase)
	if err != nil {
		return "", nil, &sirerr.SignatureError{Subject: path, Cause: fmt.Errorf("unlocking key: %v", err)}
	}

	tmp, err := os.CreateTemp("", "sira-key-*")
	if err != nil {
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}
	if err = tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}
	if _, err = tmp.Write(plaintext); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, &sirerr.InternalError{Context: "reading action key", Cause: err}
	}
	tmp.Close()

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// EncryptKey encrypts a private key's raw bytes with a passphrase, returning
// a byte array ready to write to disk as "<name>.enc".
func EncryptKey(plaintext []byte, passphrase []byte) (envelope []byte, err error) {
	salt := make([]byte, 16)
	if _, err = io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := deriveKey(passphrase, salt)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	envelope = append(salt, append(nonce, ciphertext...)...)
	return []byte(base64.StdEncoding.EncodeToString(envelope)), nil
}

func decryptKey(envelope []byte, passphrase []byte) (plaintext []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(string(envelope))
	if err != nil {
		return nil, fmt.Errorf("decoding envelope: %v", err)
	}
	if len(raw) < 28 {
		return nil, fmt.Errorf("envelope too short")
	}

	salt := raw[:16]
	nonce := raw[16:28]
	ciphertext := raw[28:]

	key := deriveKey(passphrase, salt)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, nonce, ciphertext, nil)
}

func deriveKey(passphrase []byte, salt []byte) []byte {
	const (
		time    = 1
		memory  = 64 * 1024
		threads = 4
		keyLen  = 32
	)
	return argon2.IDKey(passphrase, salt, time, memory, threads, keyLen)
}

// promptUserForSecret reads a passphrase from the controlling terminal
// without echoing it back, restoring terminal state on exit or interrupt.
func promptUserForSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("not in a terminal, prompts do not work")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set terminal raw mode: %v", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Println()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		_ = term.Restore(fd, oldState)
		fmt.Println()
		os.Exit(1)
	}()

	fmt.Print(prompt)
	secret, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("error reading passphrase: %v", err)
	}
	return secret, nil
}
