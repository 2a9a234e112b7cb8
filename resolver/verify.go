package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ocm.software/open-component-model/artifactresolver/checksum"
	"ocm.software/open-component-model/artifactresolver/internal/log"
	"ocm.software/open-component-model/artifactresolver/transport"
)

// maxChecksumSize bounds checksum files, which hold a single hex digest
// and an optional file name.
const maxChecksumSize = 64 * 1024

// Verifier checks downloaded files against checksum siblings published next
// to the artifact.
type Verifier struct {
	repo       transport.Repository
	algorithms []checksum.Algorithm
}

// NewVerifier verifies with the algorithms in order of preference.
func NewVerifier(repo transport.Repository, algorithms []checksum.Algorithm) *Verifier {
	return &Verifier{repo: repo, algorithms: algorithms}
}

// Verify checks the file at local, downloaded from path, against the first
// algorithm whose checksum resource exists. It returns that algorithm, or
// an empty algorithm when no checksum resource exists at all. A mismatch
// wraps checksum.ErrChecksumMismatch.
func (v *Verifier) Verify(ctx context.Context, path, local string) (checksum.Algorithm, error) {
	logger := log.Base(ctx).With(slog.String("repository", v.repo.Name()), slog.String("path", path))
	for _, alg := range v.algorithms {
		expected, err := v.fetch(ctx, path+alg.Extension())
		if errors.Is(err, transport.ErrNotFound) {
			logger.DebugContext(ctx, "no checksum resource", slog.String("algorithm", string(alg)))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("unable to fetch %s checksum of %s: %w", alg, path, err)
		}
		if err := checksum.VerifyFile(alg, local, expected); err != nil {
			return alg, fmt.Errorf("checksum verification of %s failed: %w", path, err)
		}
		logger.DebugContext(ctx, "checksum verified", slog.String("algorithm", string(alg)))
		return alg, nil
	}
	return "", nil
}

// fetch downloads the checksum resource to a temporary file that is always
// removed again.
func (v *Verifier) fetch(ctx context.Context, path string) (_ string, err error) {
	res, err := v.repo.Get(ctx, path, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, res.Close())
	}()

	tmp, err := os.CreateTemp("", "checksum-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	defer func() {
		err = errors.Join(err, os.Remove(name))
	}()
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := res.WriteTo(ctx, name); err != nil {
		return "", err
	}

	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	content, err := io.ReadAll(io.LimitReader(f, maxChecksumSize))
	if err != nil {
		return "", err
	}
	return checksum.ParseContent(content)
}
