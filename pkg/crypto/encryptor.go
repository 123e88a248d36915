package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

var ErrNoMatchingKey = errors.New("value was not sealed with any configured key")

// Encryptor seals secret tenant settings (SMTP passwords, API keys) at rest
// using age. Values are always sealed to the current key; retired keys stay
// readable so secrets can be re-sealed after a rotation.
type Encryptor struct {
	current *age.X25519Identity
	retired []*age.X25519Identity
}

// NewEncryptor parses the current age identity and any retired ones.
// An empty current key generates a throwaway identity; values sealed with it
// are lost on restart.
func NewEncryptor(key string, retired ...string) (*Encryptor, error) {
	e := &Encryptor{}

	if key == "" {
		id, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		e.current = id
	} else {
		id, err := age.ParseX25519Identity(key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		e.current = id
	}

	for i, k := range retired {
		id, err := age.ParseX25519Identity(k)
		if err != nil {
			return nil, fmt.Errorf("parsing retired identity %d: %w", i, err)
		}
		e.retired = append(e.retired, id)
	}
	return e, nil
}

// GenerateKey generates a new age identity suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// Seal encrypts plaintext to the current key and returns it base64 encoded,
// the form stored in settings.value.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.current.Recipient())
	if err != nil {
		return "", fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing encryptor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open decrypts a sealed value. stale reports that a retired key opened it
// and the value should be sealed again.
func (e *Encryptor) Open(sealed string) (plaintext string, stale bool, err error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", false, fmt.Errorf("decoding base64: %w", err)
	}

	if p, err := open(raw, e.current); err == nil {
		return p, false, nil
	} else if !isNoMatch(err) {
		return "", false, err
	}

	for _, id := range e.retired {
		p, err := open(raw, id)
		if err == nil {
			return p, true, nil
		}
		if !isNoMatch(err) {
			return "", false, err
		}
	}
	return "", false, ErrNoMatchingKey
}

func open(raw []byte, id age.Identity) (string, error) {
	r, err := age.Decrypt(bytes.NewReader(raw), id)
	if err != nil {
		return "", err
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading plaintext: %w", err)
	}
	return string(plain), nil
}

func isNoMatch(err error) bool {
	var noMatch *age.NoIdentityMatchError
	return errors.As(err, &noMatch)
}
