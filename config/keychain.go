package config

import (
	"errors"

	"downguard/logger"

	"github.com/zalando/go-keyring"
)

// Keychain abstracts the platform credential store so the Store can be
// tested without touching a real keychain.
type Keychain interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// ErrSecretNotFound is returned by Get when the credential store has no
// value for the name.
var ErrSecretNotFound = errors.New("secret not found")

const keychainService = "downguard"

type systemKeychain struct {
	service string
}

func (k systemKeychain) Get(name string) (string, error) {
	value, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return value, err
}

func (k systemKeychain) Set(name, value string) error {
	return keyring.Set(k.service, name, value)
}

func (k systemKeychain) Delete(name string) error {
	err := keyring.Delete(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// SystemKeychain checks the OS credential store with a throwaway canary
// entry and returns it when usable, nil otherwise. Callers pass the nil
// straight to Load, which then falls back to plaintext fields in the config
// file.
func SystemKeychain() Keychain {
	kc := systemKeychain{service: keychainService}
	const canary = "availability-check"
	if err := kc.Set(canary, "ok"); err != nil {
		logger.Infof("Platform credential store unavailable, API keys will stay in the config file: %v", err)
		return nil
	}
	if err := kc.Delete(canary); err != nil {
		logger.Debugf("Could not remove credential store canary entry: %v", err)
	}
	return kc
}
