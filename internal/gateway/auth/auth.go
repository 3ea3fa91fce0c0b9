// Package auth turns an opaque API key into an authenticated principal
// or rejects it. The actual key-to-identity mapping belongs to the
// identity store; this package owns the audit side effects.
package auth

import (
	"github.com/sirupsen/logrus"

	"model-gateway/internal/apikey"
	"model-gateway/internal/audit"
	"model-gateway/internal/database"
	"model-gateway/internal/gateway"
)

// IdentityStore resolves API key digests to user identities.
type IdentityStore interface {
	ResolveAPIKey(keyHash string) (string, error)
	GetUser(id string) (*database.User, error)
}

// Validator checks API keys against the identity store.
type Validator struct {
	ids  IdentityStore
	sink audit.Sink
	log  *logrus.Entry
}

func NewValidator(ids IdentityStore, sink audit.Sink, log *logrus.Logger) *Validator {
	return &Validator{
		ids:  ids,
		sink: sink,
		log:  log.WithField("component", "auth"),
	}
}

// Validate resolves a raw API key to a principal. A missing key yields
// nil without an audit write (the caller decides whether that matters);
// every non-empty key produces exactly one audit event, success or
// failure.
func (v *Validator) Validate(rawKey, ipAddress string) *gateway.Principal {
	if rawKey == "" {
		return nil
	}

	userID, err := v.ids.ResolveAPIKey(apikey.Hash(rawKey))
	if err != nil {
		v.log.WithError(err).Warn("Error validating API key")
		v.failure(ipAddress, err.Error())
		return nil
	}
	if userID == "" {
		v.failure(ipAddress, "Invalid API key")
		return nil
	}

	user, err := v.ids.GetUser(userID)
	if err != nil {
		v.log.WithError(err).Warn("Error loading user for API key")
		v.failure(ipAddress, err.Error())
		return nil
	}
	if user == nil || !user.Active {
		v.failure(ipAddress, "User not found or inactive")
		return nil
	}

	v.sink.Record(audit.Event{
		Kind:       audit.KindAuthSuccess,
		UserID:     user.ID,
		APIKeyUsed: true,
		IPAddress:  ipAddress,
	})
	return &gateway.Principal{ID: user.ID, Name: user.Name, Active: true}
}

func (v *Validator) failure(ipAddress, message string) {
	v.sink.Record(audit.Event{
		Kind:         audit.KindAuthFailure,
		APIKeyUsed:   true,
		IPAddress:    ipAddress,
		ErrorMessage: message,
	})
}
