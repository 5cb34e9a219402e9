package plugins

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// hashChunkSize is the read buffer used while digesting a library
const hashChunkSize = 8192

// defaultVerifyConcurrency bounds VerifyAll
const defaultVerifyConcurrency = 4

// Verifier checks plugin libraries against the digests in their manifests
type Verifier struct {
	policy SecurityPolicy
	logger *logrus.Logger
}

// NewVerifier creates a new integrity verifier for the given policy
func NewVerifier(policy SecurityPolicy, logger *logrus.Logger) *Verifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Verifier{policy: policy, logger: logger}
}

// Policy returns the policy the verifier enforces
func (v *Verifier) Policy() SecurityPolicy {
	return v.policy
}

// Verify enforces the security policy for one manifest. Under a strict policy
// a missing or malformed hash fails before the library is touched.
func (v *Verifier) Verify(manifest *Manifest, manifestPath, libraryPath string) error {
	if !v.policy.RequireHash {
		return nil
	}

	if strings.TrimSpace(manifest.SHA256) == "" {
		return pathError(ErrHashMissing, manifestPath, nil)
	}

	expected, err := DecodeHash(manifest.SHA256)
	if err != nil {
		return pathError(ErrHashInvalid, manifestPath, err)
	}

	actual, err := ComputeSHA256(libraryPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pathError(ErrLibraryMissing, libraryPath, nil)
		}
		return fmt.Errorf("failed to hash plugin library %s: %w", libraryPath, err)
	}

	if !bytes.Equal(expected, actual) {
		return &HashMismatchError{
			Path:     libraryPath,
			Expected: hex.EncodeToString(expected),
			Actual:   hex.EncodeToString(actual),
		}
	}

	v.logger.Debugf("Verified plugin library %s (sha256 %s)", libraryPath, hex.EncodeToString(actual))
	return nil
}

// ComputeSHA256 streams a file through SHA-256
func ComputeSHA256(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DigestReader(f)
}

// DigestReader hashes r in fixed-size chunks without buffering it whole
func DigestReader(r io.Reader) ([]byte, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			return h.Sum(nil), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// DecodeHash normalizes a declared digest (whitespace stripped, case folded)
// and decodes it from hex. The length is not checked here; a digest of the
// wrong size simply never matches.
func DecodeHash(raw string) ([]byte, error) {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)

	return hex.DecodeString(sanitized)
}

// VerificationReport is the outcome of verifying one discovered manifest
type VerificationReport struct {
	Name         string          `json:"name"`
	ManifestPath string          `json:"manifest_path"`
	LibraryPath  string          `json:"library_path"`
	Verified     bool            `json:"verified"`
	Skipped      bool            `json:"skipped,omitempty"` // policy does not require a hash
	Error        string          `json:"error,omitempty"`
	Warnings     []ManifestIssue `json:"warnings,omitempty"`
	err          error
}

// Err returns the verification failure, if any
func (r VerificationReport) Err() error {
	return r.err
}

// VerifyAll verifies many manifests concurrently. No library is ever opened.
// The returned reports are in input order.
func (v *Verifier) VerifyAll(ctx context.Context, manifests []DiscoveredManifest) ([]VerificationReport, error) {
	reports := make([]VerificationReport, len(manifests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultVerifyConcurrency)

	for i, dm := range manifests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = v.verifyOne(dm)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (v *Verifier) verifyOne(dm DiscoveredManifest) VerificationReport {
	report := VerificationReport{
		Name:         dm.Manifest.Name,
		ManifestPath: dm.Path,
		Warnings:     LintManifest(dm.Manifest),
	}

	libraryPath, err := ResolveLibraryPath(dm.Manifest, dm.Path)
	if err != nil {
		report.err = err
		report.Error = err.Error()
		return report
	}
	report.LibraryPath = libraryPath

	if err := v.Verify(dm.Manifest, dm.Path, libraryPath); err != nil {
		report.err = err
		report.Error = err.Error()
		return report
	}

	if _, err := os.Stat(libraryPath); err != nil {
		report.err = pathError(ErrLibraryMissing, libraryPath, nil)
		report.Error = report.err.Error()
		return report
	}

	report.Verified = v.policy.RequireHash
	report.Skipped = !v.policy.RequireHash
	return report
}
