package platform

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blowfish"
)

// The Naver token endpoint authenticates with bcrypt(clientId_timestamp) using the
// client secret as the salt. x/crypto/bcrypt only hashes with random salts, so the
// EksBlowfish setup is reproduced here on top of x/crypto/blowfish.

const (
	bcryptAlphabet    = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	bcryptSaltLen     = 16
	bcryptEncodedSalt = 22
	bcryptMaxKeyLen   = 72
	bcryptMinCost     = 4
	bcryptMaxCost     = 31
)

var (
	bcryptEncoding = base64.NewEncoding(bcryptAlphabet).WithPadding(base64.NoPadding)
	magicCipher    = []byte("OrpheanBeholderScryDoubt")
)

// bcryptWithSalt hashes password with the salt and cost carried in salt,
// a "$2a$NN$<22 chars>" prefix. The result is a standard 60-char bcrypt hash.
func bcryptWithSalt(password []byte, salt string) (string, error) {
	if len(salt) < 7+bcryptEncodedSalt || salt[0] != '$' || salt[1] != '2' {
		return "", ErrNaverConfigInvalidSecret
	}
	offset := 3
	minor := byte(0)
	if salt[2] != '$' {
		minor = salt[2]
		offset = 4
	}
	if salt[offset-1] != '$' || len(salt) < offset+3+bcryptEncodedSalt || salt[offset+2] != '$' {
		return "", ErrNaverConfigInvalidSecret
	}
	cost, err := strconv.Atoi(salt[offset : offset+2])
	if err != nil || cost < bcryptMinCost || cost > bcryptMaxCost {
		return "", fmt.Errorf("%w: bad cost", ErrNaverConfigInvalidSecret)
	}
	encodedSalt := salt[offset+3 : offset+3+bcryptEncodedSalt]
	rawSalt, err := bcryptEncoding.DecodeString(encodedSalt)
	if err != nil || len(rawSalt) != bcryptSaltLen {
		return "", fmt.Errorf("%w: bad salt encoding", ErrNaverConfigInvalidSecret)
	}
	if len(password) > bcryptMaxKeyLen {
		return "", fmt.Errorf("naver: signing key longer than %d bytes", bcryptMaxKeyLen)
	}

	key := make([]byte, len(password)+1)
	copy(key, password)

	c, err := blowfish.NewSaltedCipher(key, rawSalt)
	if err != nil {
		return "", err
	}
	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(key, c)
		blowfish.ExpandKey(rawSalt, c)
	}

	data := make([]byte, len(magicCipher))
	copy(data, magicCipher)
	for i := 0; i < len(data); i += 8 {
		for j := 0; j < 64; j++ {
			c.Encrypt(data[i:i+8], data[i:i+8])
		}
	}

	prefix := "$2"
	if minor != 0 {
		prefix += string(minor)
	}
	return fmt.Sprintf("%s$%02d$%s%s", prefix, cost,
		bcryptEncoding.EncodeToString(rawSalt),
		bcryptEncoding.EncodeToString(data[:23])), nil
}

// signClientSecret produces client_secret_sign for the token request
func signClientSecret(clientID, clientSecret string, timestampMillis int64) (string, error) {
	hashed, err := bcryptWithSalt([]byte(clientID+"_"+strconv.FormatInt(timestampMillis, 10)), clientSecret)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(hashed)), nil
}
