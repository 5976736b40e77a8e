// Package manifest provides a deterministic on-disk record of a rewrite
// run, so builds can verify that generated sources match their inputs.
//
// Format: MAGIC(4) | BODY_LEN(8, little-endian) | BODY (canonical CBOR) |
// DIGEST(32, BLAKE2b-256 of BODY). Canonical encoding plus the digest make
// the file byte-stable for identical input.
package manifest

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"

	"github.com/osoco/staleguard/core/invariant"
	"github.com/osoco/staleguard/core/transform"
)

const (
	// Magic is the file magic number (4 bytes)
	Magic = "SGRD"

	// FormatVersion is the manifest format version. Readers accept any
	// version with the same major component.
	FormatVersion = "v1.0.0"

	// maxBodyLen caps the CBOR body to keep a corrupt length field from
	// forcing a huge allocation
	maxBodyLen = 16 * 1024 * 1024
)

// Manifest records the outcome of one rewrite run
type Manifest struct {
	FormatVersion string         `cbor:"version"`
	Actions       []ActionRecord `cbor:"actions"`
}

// ActionRecord records one rewritten action: its resolved configuration and
// the rendered source of the guarded result
type ActionRecord struct {
	Name        string   `cbor:"name"`
	Redirect    string   `cbor:"redirect"`
	MessageCode string   `cbor:"messageCode"`
	ParamNames  []string `cbor:"paramNames,omitempty"`
	Source      string   `cbor:"source"`
}

// NewRecord builds a record from a resolved spec and rendered source
func NewRecord(name string, spec transform.Spec, source string) ActionRecord {
	return ActionRecord{
		Name:        name,
		Redirect:    spec.Redirect,
		MessageCode: spec.MessageCode,
		ParamNames:  transform.SplitParamNames(spec.ParamNames),
		Source:      source,
	}
}

// Write writes the manifest to w and returns the 32-byte body digest.
// An unset FormatVersion is stamped with the current version.
func Write(w io.Writer, m *Manifest) ([32]byte, error) {
	invariant.NotNil(m, "manifest")

	if m.FormatVersion == "" {
		m.FormatVersion = FormatVersion
	}

	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return [32]byte{}, fmt.Errorf("creating encoder: %w", err)
	}
	body, err := em.Marshal(m)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encoding manifest: %w", err)
	}

	digest := blake2b.Sum256(body)

	if _, err := w.Write([]byte(Magic)); err != nil {
		return [32]byte{}, fmt.Errorf("writing magic: %w", err)
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return [32]byte{}, fmt.Errorf("writing body length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return [32]byte{}, fmt.Errorf("writing body: %w", err)
	}
	if _, err := w.Write(digest[:]); err != nil {
		return [32]byte{}, fmt.Errorf("writing digest: %w", err)
	}

	return digest, nil
}

// Read reads a manifest from r, verifying the digest and that the format
// version is one this reader understands.
func Read(r io.Reader) (*Manifest, [32]byte, error) {
	var preamble [12]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("reading preamble: %w", err)
	}

	if magic := string(preamble[0:4]); magic != Magic {
		return nil, [32]byte{}, fmt.Errorf("invalid magic: got %q, expected %q", magic, Magic)
	}

	bodyLen := binary.LittleEndian.Uint64(preamble[4:12])
	if bodyLen > maxBodyLen {
		return nil, [32]byte{}, fmt.Errorf("body length %d exceeds maximum %d", bodyLen, maxBodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, [32]byte{}, fmt.Errorf("reading body: %w", err)
	}

	var stored [32]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("reading digest: %w", err)
	}

	digest := blake2b.Sum256(body)
	if subtle.ConstantTimeCompare(digest[:], stored[:]) != 1 {
		return nil, [32]byte{}, fmt.Errorf("digest mismatch: manifest corrupted or truncated")
	}

	var m Manifest
	if err := cbor.Unmarshal(body, &m); err != nil {
		return nil, [32]byte{}, fmt.Errorf("decoding manifest: %w", err)
	}

	if err := checkVersion(m.FormatVersion); err != nil {
		return nil, [32]byte{}, err
	}

	return &m, digest, nil
}

// Digest returns the body digest the manifest would be written with
func Digest(m *Manifest) ([32]byte, error) {
	var buf bytes.Buffer
	return Write(&buf, m)
}

// checkVersion accepts same-major versions of the format
func checkVersion(version string) error {
	if !semver.IsValid(version) {
		return fmt.Errorf("invalid format version %q", version)
	}
	if semver.Major(version) != semver.Major(FormatVersion) {
		return fmt.Errorf("unsupported format version %s: this reader handles %s",
			version, semver.Major(FormatVersion))
	}
	return nil
}
