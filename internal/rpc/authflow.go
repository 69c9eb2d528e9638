package rpc

import (
	"context"

	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/credential"
	"github.com/steerrt/agentrt/pkg/types"
)

// authFlow tracks one in-progress StartAuth/GetAuthProgress exchange. This
// runtime's auth flow is the simplest one a headless client can drive
// without a browser redirect round-trip: StartAuth tells the operator which
// environment variable or keyring entry to populate, and GetAuthProgress
// polls the credential store until an api_key credential for the provider
// shows up.
type authFlow struct {
	id         string
	providerID string
	instructions string
	creds      *credential.Store
}

func newAuthFlow(providerID string, creds *credential.Store) *authFlow {
	return &authFlow{
		id:         types.NewID(),
		providerID: providerID,
		instructions: "set an API key for provider " + providerID +
			" (via the CLI's auth command or the provider's credential env var), then poll GetAuthProgress",
		creds: creds,
	}
}

// progress reports NeedsInput until the credential store holds an api_key
// credential for the flow's provider, then Complete. A store error surfaces
// as AuthError rather than failing the RPC, since a transient keyring
// failure shouldn't abort a polling client.
func (f *authFlow) progress(ctx context.Context) *AuthProgress {
	if f.creds == nil {
		return &AuthProgress{State: AuthNeedsInput, Prompt: f.instructions}
	}
	cred, err := f.creds.Get(ctx, f.providerID, credential.TypeAPIKey)
	if err != nil {
		return &AuthProgress{State: AuthError, Error: err.Error()}
	}
	if cred == nil || cred.APIKey == "" {
		return &AuthProgress{State: AuthNeedsInput, Prompt: f.instructions}
	}
	return &AuthProgress{State: AuthComplete}
}

// approvalDecisionFor maps a wire-level bool onto the session package's
// richer Decision type; StreamSession's Approve frame has no way to express
// ApprovedForSession, only a one-shot yes/no.
func approvalDecisionFor(approved bool) approval.Decision {
	if approved {
		return approval.Approved
	}
	return approval.Denied
}
