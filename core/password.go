package core

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Upper bounds on cost parameters read from stored hashes.
const (
	maxPBKDF2Iterations = 10_000_000
	maxScryptN          = 1 << 20
	maxArgon2MemoryKiB  = 1 << 21
	werkzeugScryptKey   = 64
	werkzeugPBKDF2Iter  = 600000
)

var errMalformedHash = errors.New("malformed password hash")

// HashPassword hashes plaintext with bcrypt at the default cost.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// IsPasswordHash reports whether s is in one of the supported hash formats.
func IsPasswordHash(s string) bool {
	switch {
	case isBcrypt(s):
		_, err := bcrypt.Cost([]byte(s))
		return err == nil
	case strings.HasPrefix(s, "$argon2id$"):
		_, err := parseArgon2(s)
		return err == nil
	case strings.HasPrefix(s, "pbkdf2:"), strings.HasPrefix(s, "scrypt:"):
		_, _, _, err := splitWerkzeug(s)
		return err == nil
	}
	return false
}

// VerifyPassword checks plaintext against storedHash. It returns false for
// empty or malformed hashes and never panics.
func VerifyPassword(storedHash, plaintext string) bool {
	if storedHash == "" {
		return false
	}
	switch {
	case isBcrypt(storedHash):
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return verifyArgon2(storedHash, plaintext)
	case strings.HasPrefix(storedHash, "pbkdf2:"):
		return verifyPBKDF2(storedHash, plaintext)
	case strings.HasPrefix(storedHash, "scrypt:"):
		return verifyScrypt(storedHash, plaintext)
	}
	return false
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// parseArgon2 reads the PHC form $argon2id$v=19$m=..,t=..,p=..$salt$hash.
func parseArgon2(encoded string) (argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argon2Params{}, errMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return argon2Params{}, errMalformedHash
	}
	var p argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return argon2Params{}, errMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return argon2Params{}, errMalformedHash
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return argon2Params{}, errMalformedHash
			}
			p.parallelism = uint8(n)
		default:
			return argon2Params{}, errMalformedHash
		}
	}
	if p.memory == 0 || p.memory > maxArgon2MemoryKiB || p.time == 0 || p.parallelism == 0 {
		return argon2Params{}, errMalformedHash
	}
	var err error
	if p.salt, err = decodeB64(parts[4]); err != nil || len(p.salt) == 0 {
		return argon2Params{}, errMalformedHash
	}
	if p.hash, err = decodeB64(parts[5]); err != nil || len(p.hash) == 0 {
		return argon2Params{}, errMalformedHash
	}
	return p, nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func verifyArgon2(encoded, plaintext string) bool {
	p, err := parseArgon2(encoded)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(plaintext), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(computed, p.hash) == 1
}

// splitWerkzeug splits "method$salt$hexdigest".
func splitWerkzeug(encoded string) (method, salt string, digest []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[1] == "" {
		return "", "", nil, errMalformedHash
	}
	digest, err = hex.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return "", "", nil, errMalformedHash
	}
	return parts[0], parts[1], digest, nil
}

func verifyPBKDF2(encoded, plaintext string) bool {
	method, salt, digest, err := splitWerkzeug(encoded)
	if err != nil {
		return false
	}
	// pbkdf2:<hash>[:iterations]
	fields := strings.Split(method, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return false
	}
	var newHash func() hash.Hash
	switch fields[1] {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return false
	}
	iterations := werkzeugPBKDF2Iter
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n <= 0 || n > maxPBKDF2Iterations {
			return false
		}
		iterations = n
	}
	if len(digest) != newHash().Size() {
		return false
	}
	computed := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, len(digest), newHash)
	return subtle.ConstantTimeCompare(computed, digest) == 1
}

func verifyScrypt(encoded, plaintext string) bool {
	method, salt, digest, err := splitWerkzeug(encoded)
	if err != nil {
		return false
	}
	// scrypt:N:r:p
	fields := strings.Split(method, ":")
	if len(fields) != 4 {
		return false
	}
	params := make([]int, 3)
	for i, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 {
			return false
		}
		params[i] = n
	}
	if params[0] > maxScryptN || params[1] > 32 || params[2] > 16 || len(digest) != werkzeugScryptKey {
		return false
	}
	computed, err := scrypt.Key([]byte(plaintext), []byte(salt), params[0], params[1], params[2], len(digest))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, digest) == 1
}
