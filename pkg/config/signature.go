package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fulmenhq/affiance/internal/assets"
	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// Local git config keys for the configuration signature.
const (
	SignatureKey        = "affiance.configuration.signature"
	VerifySignaturesKey = "affiance.configuration.verifysignatures"
)

// ignoredSignatureKeys are dropped from hook records before hashing so that
// toggling them does not require re-signing.
var ignoredSignatureKeys = []string{"skip"}

// StripIgnored returns a copy of a hook record without the keys that do not
// participate in signatures.
func StripIgnored(rec map[string]any) map[string]any {
	out := deepCopyMap(rec)
	for _, k := range ignoredSignatureKeys {
		delete(out, k)
	}
	return out
}

func (c *Config) signatureTree() map[string]any {
	tree := deepCopyMap(c.tree)
	for _, ht := range HookTypes {
		section, ok := asMap(tree[ht.Config])
		if !ok {
			continue
		}
		for name, rec := range section {
			if m, ok := asMap(rec); ok {
				section[name] = StripIgnored(m)
			}
		}
	}
	return tree
}

// Signature is the SHA-256 of the JSON-encoded tree with ignored keys
// removed. encoding/json orders map keys, so the encoding is canonical.
func (c *Config) Signature() (string, error) {
	data, err := json.Marshal(c.signatureTree())
	if err != nil {
		return "", fmt.Errorf("%w: encode configuration: %v", hookerr.ErrConfiguration, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Config) requireStore() error {
	if c.store == nil {
		return fmt.Errorf("%w: no local git config store", hookerr.ErrConfiguration)
	}
	return nil
}

// StoredSignature returns the signature recorded in local git config, "" if
// none has been recorded.
func (c *Config) StoredSignature() (string, error) {
	if err := c.requireStore(); err != nil {
		return "", err
	}
	sig, err := c.store.ConfigGet(SignatureKey)
	if err != nil {
		return "", fmt.Errorf("%w: unable to read local git config: %v", hookerr.ErrConfiguration, err)
	}
	return sig, nil
}

// UpdateSignature records the current signature and whether signatures are
// verified for this repository.
func (c *Config) UpdateSignature() error {
	if err := c.requireStore(); err != nil {
		return err
	}
	sig, err := c.Signature()
	if err != nil {
		return err
	}
	verify := "1"
	if v, ok := c.tree[keyVerifySignatures].(bool); ok && !v {
		verify = "0"
	}
	if err := c.store.ConfigSet(SignatureKey, sig); err != nil {
		return fmt.Errorf("%w: unable to write local git config: %v", hookerr.ErrConfiguration, err)
	}
	if err := c.store.ConfigSet(VerifySignaturesKey, verify); err != nil {
		return fmt.Errorf("%w: unable to write local git config: %v", hookerr.ErrConfiguration, err)
	}
	logger.Debug("config: signature updated", logger.String("signature", sig), logger.String("verify", verify))
	return nil
}

// HasSignatureChanged compares the current and stored signatures.
func (c *Config) HasSignatureChanged() (bool, error) {
	stored, err := c.StoredSignature()
	if err != nil {
		return false, err
	}
	sig, err := c.Signature()
	if err != nil {
		return false, err
	}
	return sig != stored, nil
}

// ShouldVerifySignatures is true unless AFFIANCE_NO_VERIFY is set, the
// configuration sets verifySignatures: false, or the stored verification
// flag is "0".
func (c *Config) ShouldVerifySignatures() (bool, error) {
	if c.settings.NoVerify {
		return false, nil
	}
	if v, ok := c.tree[keyVerifySignatures].(bool); ok && !v {
		return false, nil
	}
	if c.store == nil {
		return true, nil
	}
	flag, err := c.store.ConfigGet(VerifySignaturesKey)
	if err != nil {
		return false, fmt.Errorf("%w: unable to read local git config: %v", hookerr.ErrConfiguration, err)
	}
	return flag != "0", nil
}

// VerifySignature fails with ErrConfigurationSignatureChanged when the
// configuration has never been signed or has changed since it was.
func (c *Config) VerifySignature() error {
	verify, err := c.ShouldVerifySignatures()
	if err != nil || !verify {
		return err
	}
	stored, err := c.StoredSignature()
	if err != nil {
		return err
	}
	sig, err := c.Signature()
	if err != nil {
		return err
	}
	if sig == stored {
		return nil
	}
	msg := assets.MustRender(assets.TemplateConfigSignature, map[string]any{"configFile": c.source})
	if stored == "" {
		msg = "no signature has been recorded for this configuration.\n" + msg
	}
	return errors.Join(hookerr.ErrConfigurationSignatureChanged, errors.New(msg))
}
