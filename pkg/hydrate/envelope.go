package hydrate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	berrors "github.com/braid-dev/braid/internal/errors"
)

// Envelope packs a context payload into a compact, tamper-evident string
// for transports where the payload leaves the page it was rendered into:
// navigation state handed back by the client, prefetch caches, non-JS
// consumers. The wire form is msgpack, base64url-encoded and HMAC-signed:
//
//	<base64url(msgpack(payload))>.<base64url(hmac-sha256[:16])>
//
// The payload stays readable to anyone who decodes it; the signature only
// proves the server produced it. Secrets do not belong in context values.
type Envelope struct {
	key []byte
}

// NewEnvelope creates an envelope signer. Short keys are stretched through
// SHA-256 so the HMAC key is always 32 bytes.
func NewEnvelope(key []byte) *Envelope {
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Envelope{key: key}
}

// Seal encodes and signs a payload.
func (e *Envelope) Seal(payload Payload) (string, error) {
	packed, err := msgpack.Marshal(map[string][]byte(toByteMap(payload)))
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, e.key)
	mac.Write(packed)
	sig := mac.Sum(nil)[:16]
	return base64.RawURLEncoding.EncodeToString(packed) + "." +
		base64.RawURLEncoding.EncodeToString(sig), nil
}

// Open verifies and decodes a sealed payload. Any mismatch — format,
// base64, signature, msgpack — comes back as the same B2003 error, so a
// tampered envelope learns nothing about which check failed.
func (e *Envelope) Open(sealed string) (Payload, error) {
	data, sig, ok := strings.Cut(sealed, ".")
	if !ok {
		return nil, rejected("missing signature")
	}

	packed, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, rejected("undecodable payload")
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, rejected("undecodable signature")
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(packed)
	want := mac.Sum(nil)[:16]
	if !hmac.Equal(got, want) {
		return nil, rejected("signature mismatch")
	}

	var raw map[string][]byte
	if err := msgpack.Unmarshal(packed, &raw); err != nil {
		return nil, rejected("malformed payload")
	}
	payload := make(Payload, len(raw))
	for name, value := range raw {
		payload[name] = value
	}
	return payload, nil
}

func rejected(detail string) error {
	return berrors.New("B2003").WithDetail("%s", detail)
}

func toByteMap(p Payload) map[string][]byte {
	out := make(map[string][]byte, len(p))
	for name, value := range p {
		out[name] = value
	}
	return out
}
