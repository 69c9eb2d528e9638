package credential

import (
	"context"
	"errors"
	"os/user"

	"github.com/zalando/go-keyring"

	"github.com/steerrt/agentrt/internal/apperror"
)

// service names the single keyring entry this process reads and writes.
// Every provider's credentials live under one entry, keyed by OS user, so a
// single Get/Set round-trip to the OS credential manager covers the whole
// blob rather than one round-trip per provider.
const service = "agentrt"

// Store is a keyring-backed credential store: get/set/remove never run on
// the caller's goroutine, each dispatches onto its own goroutine and joins
// through a result channel raced against ctx, the same park-and-select
// shape internal/approval.Gate.Request uses for a human approval decision.
type Store struct {
	account string
}

// NewStore returns a Store scoped to the current OS user's keyring entry.
func NewStore() (*Store, error) {
	u, err := user.Current()
	if err != nil {
		return nil, apperror.StorageBackend(err)
	}
	return &Store{account: u.Username}, nil
}

// Get returns provider's credential of the given type, or nil if none is
// stored — a miss is not an error.
func (s *Store) Get(ctx context.Context, provider string, typ Type) (*Credential, error) {
	var result *Credential
	err := s.dispatch(ctx, func() error {
		b, err := s.readBlob()
		if err != nil {
			return err
		}
		cred, ok := b[provider][typ]
		if !ok {
			return nil
		}
		result = &cred
		return nil
	})
	return result, err
}

// Set stores cred under provider, replacing any existing credential of the
// same type.
func (s *Store) Set(ctx context.Context, provider string, cred Credential) error {
	return s.dispatch(ctx, func() error {
		b, err := s.readBlob()
		if err != nil {
			return err
		}
		if b[provider] == nil {
			b[provider] = make(map[Type]Credential)
		}
		b[provider][cred.Type] = cred
		return s.writeBlob(b)
	})
}

// Remove deletes provider's credential of the given type. Removing the
// last credential for a provider drops the provider's slot; removing the
// last provider deletes the keyring entry entirely.
func (s *Store) Remove(ctx context.Context, provider string, typ Type) error {
	return s.dispatch(ctx, func() error {
		b, err := s.readBlob()
		if err != nil {
			return err
		}
		delete(b[provider], typ)
		if len(b[provider]) == 0 {
			delete(b, provider)
		}
		return s.writeBlob(b)
	})
}

// dispatch runs fn on its own goroutine and returns its error, or ctx.Err()
// if ctx is cancelled first. fn still runs to completion in the background
// in that case; the keyring call itself has no cancellation hook.
func (s *Store) dispatch(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		return apperror.StorageBackend(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) readBlob() (blob, error) {
	data, err := keyring.Get(service, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return blob{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBlob([]byte(data))
}

func (s *Store) writeBlob(b blob) error {
	if len(b) == 0 {
		err := keyring.Delete(service, s.account)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	data, err := encodeBlob(b)
	if err != nil {
		return err
	}
	return keyring.Set(service, s.account, string(data))
}

// staticResolver is the shape of internal/llm.CredentialResolver, duplicated
// here by structural typing so this package doesn't need to import
// internal/llm just to be wired into it.
type staticResolver interface {
	Resolve(providerID string) (apiKey, baseURL string, err error)
}

// Resolver adapts a Store to llm.CredentialResolver: Static, if set, is
// consulted first (a session or global config's own provider.api_key always
// overrides a keyring-stored credential), falling back to the keyring
// credential set through a StartAuth/GetAuthProgress flow.
type Resolver struct {
	Store  *Store
	Static staticResolver
}

func (r Resolver) Resolve(providerID string) (apiKey, baseURL string, err error) {
	if r.Static != nil {
		if key, url, serr := r.Static.Resolve(providerID); serr == nil && key != "" {
			return key, url, nil
		}
	}
	cred, err := r.Store.Get(context.Background(), providerID, TypeAPIKey)
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", nil
	}
	return cred.APIKey, "", nil
}
