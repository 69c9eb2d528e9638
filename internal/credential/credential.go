// Package credential implements the credential store: per-provider API
// keys and OAuth2 tokens, held in the OS keyring rather than session
// storage or the config file. A single JSON blob under one keyring entry
// per OS user holds every provider's credentials; individual get/set/remove
// calls read-modify-write that blob.
package credential

import "encoding/json"

// Type discriminates the two credential shapes a provider can hold.
type Type string

const (
	TypeAPIKey Type = "api_key"
	TypeOAuth2 Type = "oauth2"

	// legacyOAuth2Key is the credential-type key this runtime's predecessor
	// wrote for OAuth2 tokens, under the older field names below. decodeBlob
	// aliases it to TypeOAuth2 so credentials set before this key was
	// renamed keep working.
	legacyOAuth2Key = "AuthTokens"
)

// Credential is one provider's stored secret. Only the fields matching Type
// are meaningful; the rest are zero.
type Credential struct {
	Type Type `json:"type"`

	// TypeAPIKey
	APIKey string `json:"apiKey,omitempty"`

	// TypeOAuth2
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // unix millis, 0 = no expiry known
}

// legacyAuthTokens is the field layout legacyOAuth2Key entries were written
// with, before this store's current Credential shape.
type legacyAuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
}

// blob is the decoded shape of the single JSON value kept in the keyring:
// provider id -> credential type -> Credential.
type blob map[string]map[Type]Credential

// decodeBlob parses the raw keyring payload, aliasing any legacyOAuth2Key
// entry to TypeOAuth2 with the legacy field names. An empty/nil payload
// decodes to an empty blob, not an error — there's simply nothing stored
// yet.
func decodeBlob(data []byte) (blob, error) {
	if len(data) == 0 {
		return blob{}, nil
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make(blob, len(raw))
	for provider, byType := range raw {
		creds := make(map[Type]Credential, len(byType))
		for key, payload := range byType {
			if key == legacyOAuth2Key {
				var legacy legacyAuthTokens
				if err := json.Unmarshal(payload, &legacy); err != nil {
					return nil, err
				}
				creds[TypeOAuth2] = Credential{
					Type:         TypeOAuth2,
					AccessToken:  legacy.AccessToken,
					RefreshToken: legacy.RefreshToken,
					ExpiresAt:    legacy.Expires,
				}
				continue
			}
			var cred Credential
			if err := json.Unmarshal(payload, &cred); err != nil {
				return nil, err
			}
			creds[Type(key)] = cred
		}
		if len(creds) > 0 {
			out[provider] = creds
		}
	}
	return out, nil
}

func encodeBlob(b blob) ([]byte, error) {
	return json.Marshal(b)
}
