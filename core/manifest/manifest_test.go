package manifest_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osoco/staleguard/core/manifest"
	"github.com/osoco/staleguard/core/transform"
)

func sample() *manifest.Manifest {
	return &manifest.Manifest{
		Actions: []manifest.ActionRecord{
			manifest.NewRecord("update", transform.Spec{
				Redirect:    "dealLocking",
				MessageCode: "optimistic.failure.code",
				ParamNames:  "id, version",
			}, "guard { ... }"),
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	wrote, err := manifest.Write(&buf, sample())
	require.NoError(t, err)

	got, read, err := manifest.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, wrote, read)

	assert.Equal(t, manifest.FormatVersion, got.FormatVersion)
	require.Len(t, got.Actions, 1)
	record := got.Actions[0]
	assert.Equal(t, "update", record.Name)
	assert.Equal(t, "dealLocking", record.Redirect)
	assert.Equal(t, "optimistic.failure.code", record.MessageCode)
	assert.Equal(t, []string{"id", "version"}, record.ParamNames)
	assert.Equal(t, "guard { ... }", record.Source)
}

func TestWriteDeterministic(t *testing.T) {
	var first, second bytes.Buffer

	d1, err := manifest.Write(&first, sample())
	require.NoError(t, err)
	d2, err := manifest.Write(&second, sample())
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestReadRejectsTamperedBody(t *testing.T) {
	var buf bytes.Buffer
	_, err := manifest.Write(&buf, sample())
	require.NoError(t, err)

	data := buf.Bytes()
	data[len(data)-40] ^= 0xFF // flip a body byte, leave the digest alone

	_, _, err = manifest.Read(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	_, err := manifest.Write(&buf, sample())
	require.NoError(t, err)

	data := buf.Bytes()
	copy(data[0:4], "NOPE")

	_, _, err = manifest.Read(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic")
}

func TestReadRejectsForeignMajorVersion(t *testing.T) {
	m := sample()
	m.FormatVersion = "v2.0.0"

	var buf bytes.Buffer
	_, err := manifest.Write(&buf, m)
	require.NoError(t, err)

	_, _, err = manifest.Read(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format version")
}

func TestReadRejectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	_, err := manifest.Write(&buf, sample())
	require.NoError(t, err)

	data := buf.Bytes()[:buf.Len()-10]
	_, _, err = manifest.Read(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestNewRecordTokenizesParamNames(t *testing.T) {
	record := manifest.NewRecord("update", transform.Spec{
		Redirect:    transform.DefaultRedirect,
		MessageCode: transform.DefaultMessageCode,
		ParamNames:  "",
	}, "")
	assert.Nil(t, record.ParamNames)
}
