package models

import (
	"github.com/jimdaga/ki-report/internal/crypto"
)

var fieldCipher *crypto.FieldCipher

// InitEncryption enables at-rest encryption of contact emails. Without it
// the columns are stored in plaintext.
func InitEncryption(encryptionKey string) error {
	c, err := crypto.NewFieldCipher(encryptionKey)
	if err != nil {
		return err
	}
	fieldCipher = c
	return nil
}

func sealField(v *string) error {
	if fieldCipher == nil || *v == "" {
		return nil
	}
	sealed, err := fieldCipher.Seal(*v)
	if err != nil {
		return err
	}
	*v = sealed
	return nil
}

func openField(v *string) error {
	if fieldCipher == nil || *v == "" {
		return nil
	}
	plain, err := fieldCipher.Open(*v)
	if err != nil {
		return err
	}
	*v = plain
	return nil
}
