package mailer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// encryptBody encrypts plaintext to every key in the armored key ring and
// returns an ASCII-armored PGP message.
func encryptBody(armoredKey string, plaintext []byte) ([]byte, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	var buf bytes.Buffer
	armorWriter, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return nil, fmt.Errorf("creating armor writer: %w", err)
	}

	encWriter, err := openpgp.Encrypt(armorWriter, entityList, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating encrypt writer: %w", err)
	}

	if _, err := encWriter.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing encrypt writer: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing armor writer: %w", err)
	}

	return buf.Bytes(), nil
}

// CanEncrypt returns nil when a PGP public key is configured and parses.
func (m *Mailer) CanEncrypt() error {
	if m.cfg.PGPPublicKey == "" {
		return fmt.Errorf("no PGP public key configured")
	}
	if _, err := openpgp.ReadArmoredKeyRing(strings.NewReader(m.cfg.PGPPublicKey)); err != nil {
		return fmt.Errorf("cannot parse PGP public key: %w", err)
	}
	return nil
}
