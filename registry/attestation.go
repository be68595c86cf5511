package registry

import (
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
)

// PasskeyFromAttestation extracts Passkey from the JSON-encoded WebAuthn
// registration response, i.e. PublicKeyCredential returned by
// navigator.credentials.create(). Client data and attestation statement are
// not verified, the response is only parsed.
func PasskeyFromAttestation(data []byte) (Passkey, error) {
	var ccr protocol.CredentialCreationResponse

	if err := json.Unmarshal(data, &ccr); err != nil {
		return Passkey{}, fmt.Errorf("%w: decode registration response: %w", ErrInvalidPasskey, err)
	}

	parsed, err := ccr.Parse()
	if err != nil {
		return Passkey{}, fmt.Errorf("%w: parse registration response: %w", ErrInvalidPasskey, err)
	}

	return PasskeyFromCOSE(parsed.Response.AttestationObject.AuthData.AttData.CredentialPublicKey)
}
