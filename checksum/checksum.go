// Package checksum provides the checksum algorithms used by repositories and
// the parsing of checksum sibling files.
package checksum

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/opencontainers/go-digest"
)

// ErrChecksumMismatch is returned when content does not match its checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrUnknownAlgorithm is returned for algorithm names that are not supported.
var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// Algorithm names a checksum algorithm. The name doubles as the extension of
// checksum sibling files.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Supported lists all algorithms in order of preference for publishing.
var Supported = []Algorithm{SHA1, MD5, SHA256, SHA512}

// digestAlgorithm maps algorithms backed by go-digest.
func (a Algorithm) digestAlgorithm() (digest.Algorithm, bool) {
	switch a {
	case SHA256:
		return digest.SHA256, true
	case SHA512:
		return digest.SHA512, true
	default:
		return "", false
	}
}

// Valid reports whether the algorithm is supported.
func (a Algorithm) Valid() bool {
	switch a {
	case MD5, SHA1, SHA256, SHA512:
		return true
	default:
		return false
	}
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	if da, ok := a.digestAlgorithm(); ok {
		return da.Hash(), nil
	}
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Extension returns the file extension of checksum siblings.
func (a Algorithm) Extension() string {
	return "." + string(a)
}

// ParseAlgorithms parses a comma separated list. Blank entries and "none"
// are ignored; unknown names fail.
func ParseAlgorithms(csv string) ([]Algorithm, error) {
	var algs []Algorithm
	for _, entry := range strings.Split(csv, ",") {
		name := strings.ToLower(strings.TrimSpace(entry))
		if name == "" || name == "none" {
			continue
		}
		alg := Algorithm(name)
		if !alg.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

// Compute returns the lower case hex checksum of everything read from r.
func Compute(alg Algorithm, r io.Reader) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to compute %s: %w", alg, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeFile returns the checksum of a file.
func ComputeFile(alg Algorithm, path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return Compute(alg, f)
}

// MismatchError describes content that failed verification.
type MismatchError struct {
	Algorithm Algorithm
	Expected  string
	Computed  string
	Path      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("invalid %s: expected=%s computed=%s", e.Algorithm, e.Expected, e.Computed)
}

func (e *MismatchError) Unwrap() error {
	return ErrChecksumMismatch
}

// VerifyFile checks the file at path against the expected checksum.
func VerifyFile(alg Algorithm, path, expected string) (err error) {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if da, ok := alg.digestAlgorithm(); ok {
		return verifyDigest(da, alg, path, expected)
	}
	computed, err := ComputeFile(alg, path)
	if err != nil {
		return err
	}
	if computed != expected {
		return &MismatchError{Algorithm: alg, Expected: expected, Computed: computed, Path: path}
	}
	return nil
}

func verifyDigest(da digest.Algorithm, alg Algorithm, path, expected string) (err error) {
	dig := digest.NewDigestFromEncoded(da, expected)
	if err := dig.Validate(); err != nil {
		return &MismatchError{Algorithm: alg, Expected: expected, Computed: "<invalid expected value>", Path: path}
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	verifier := dig.Verifier()
	computer := da.Digester()
	if _, err := io.Copy(io.MultiWriter(verifier, computer.Hash()), f); err != nil {
		return fmt.Errorf("failed to compute %s: %w", alg, err)
	}
	if !verifier.Verified() {
		return &MismatchError{Algorithm: alg, Expected: expected, Computed: computer.Digest().Encoded(), Path: path}
	}
	return nil
}

// ParseContent extracts the checksum value from the content of a checksum
// file. It understands plain values, "value filename" and "ALG (file) = value".
func ParseContent(content []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	line := ""
	if scanner.Scan() {
		line = scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return "", errors.New("empty checksum file")
	}
	if strings.ContainsRune(line, ' ') && (strings.HasPrefix(line, "md") || strings.HasPrefix(line, "sha")) {
		return line[strings.LastIndexByte(line, ' ')+1:], nil
	}
	value, _, hasSpace := strings.Cut(line, " ")
	if !hasSpace {
		return line, nil
	}
	if strings.HasSuffix(value, ":") {
		// grouped hex such as "fontbox.jar: 1a2b 3c4d"
		var b strings.Builder
		for _, l := range strings.Split(string(content), "\n") {
			if _, rest, ok := strings.Cut(l, ":"); ok {
				l = rest
			}
			for _, r := range l {
				if !unicode.IsSpace(r) {
					b.WriteRune(unicode.ToLower(r))
				}
			}
		}
		return b.String(), nil
	}
	return value, nil
}
