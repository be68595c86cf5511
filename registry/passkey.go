package registry

import (
	"crypto/elliptic"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
)

// PasskeyLen is the length of the Passkey in bytes.
const PasskeyLen = passkeyconst.PasskeyLen

// uncompressedPointTag is the SEC1 prefix of the uncompressed point.
const uncompressedPointTag = 0x04

// coordLen is the length of the P-256 point coordinate.
const coordLen = 32

// Passkey is an authenticator-issued public key: uncompressed SEC1 encoded
// point of the P-256 curve. Registry treats it as an opaque key, see Validate
// for the curve check.
type Passkey [PasskeyLen]byte

// PasskeyFromBytes converts raw bytes into the Passkey. Only the length is
// checked.
func PasskeyFromBytes(b []byte) (Passkey, error) {
	var pk Passkey
	if len(b) != PasskeyLen {
		return pk, fmt.Errorf("%w: length %d instead of %d", ErrInvalidPasskey, len(b), PasskeyLen)
	}
	copy(pk[:], b)
	return pk, nil
}

// PasskeyFromPublicKey returns Passkey of the given P-256 public key.
func PasskeyFromPublicKey(k *keys.PublicKey) (Passkey, error) {
	if k.Curve != elliptic.P256() {
		return Passkey{}, fmt.Errorf("%w: curve %s is not P-256", ErrInvalidPasskey, k.Curve.Params().Name)
	}
	return PasskeyFromBytes(k.UncompressedBytes())
}

// PasskeyFromCOSE extracts Passkey from the COSE_Key structure of the WebAuthn
// credential (attested credential data). Only ES256 EC2 keys are supported.
func PasskeyFromCOSE(data []byte) (Passkey, error) {
	parsed, err := webauthncose.ParsePublicKey(data)
	if err != nil {
		return Passkey{}, fmt.Errorf("%w: parse COSE key: %w", ErrInvalidPasskey, err)
	}

	ec, ok := parsed.(webauthncose.EC2PublicKeyData)
	if !ok {
		return Passkey{}, fmt.Errorf("%w: COSE key is not EC2 (%T)", ErrInvalidPasskey, parsed)
	}

	if ec.Curve != int64(webauthncose.P256) {
		return Passkey{}, fmt.Errorf("%w: COSE curve %d is not P-256", ErrInvalidPasskey, ec.Curve)
	}

	if len(ec.XCoord) > coordLen || len(ec.YCoord) > coordLen {
		return Passkey{}, fmt.Errorf("%w: oversized COSE coordinates", ErrInvalidPasskey)
	}

	var pk Passkey
	pk[0] = uncompressedPointTag
	copy(pk[1+coordLen-len(ec.XCoord):1+coordLen], ec.XCoord)
	copy(pk[1+2*coordLen-len(ec.YCoord):], ec.YCoord)

	return pk, nil
}

// DecodePasskeyString decodes Passkey from the hex (optionally 0x-prefixed) or
// base64url (raw or padded) string.
func DecodePasskeyString(s string) (Passkey, error) {
	s = strings.TrimSpace(s)

	if b, err := hex.DecodeString(strings.TrimPrefix(s, "0x")); err == nil {
		return PasskeyFromBytes(b)
	}

	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Passkey{}, fmt.Errorf("%w: neither hex nor base64url", ErrInvalidPasskey)
	}

	return PasskeyFromBytes(b)
}

// Validate checks that the Passkey is an uncompressed point of the P-256 curve.
func (p Passkey) Validate() error {
	_, err := p.PublicKey()
	return err
}

// PublicKey decodes the Passkey into the public key.
func (p Passkey) PublicKey() (*keys.PublicKey, error) {
	if p[0] != uncompressedPointTag {
		return nil, fmt.Errorf("%w: not an uncompressed point (prefix 0x%02x)", ErrInvalidPasskey, p[0])
	}

	k, err := keys.NewPublicKeyFromBytes(p[:], elliptic.P256())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPasskey, err)
	}

	return k, nil
}

// String returns hex-encoded Passkey.
func (p Passkey) String() string {
	return hex.EncodeToString(p[:])
}
