package tokenauth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	accessKeyInfo  = "tokenauth/v1 access-token signing key"
	refreshKeyInfo = "tokenauth/v1 refresh-token signing key"
)

// DeriveSigningKeys expands master into independent access and refresh
// signing keys of n bytes each using HKDF-SHA256. The issuer is used as salt,
// so the same master secret yields different keys per issuer.
func DeriveSigningKeys(master []byte, issuer string, n int) (access, refresh []byte, err error) {
	if len(master) < 32 {
		return nil, nil, errors.New("master secret must be at least 32 bytes")
	}
	if n < 32 {
		return nil, nil, errors.New("derived key length must be at least 32 bytes")
	}

	access = make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, []byte(issuer), []byte(accessKeyInfo)), access); err != nil {
		return nil, nil, err
	}
	refresh = make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, []byte(issuer), []byte(refreshKeyInfo)), refresh); err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}
