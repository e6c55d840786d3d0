package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvBytes(words ...uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return out
}

func TestBytesToBytecodeIsLittleEndian(t *testing.T) {
	got := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0xff, 0x00, 0x00, 0x01, 0xaa})
	assert.Equal(t, []uint32{0x07230203, 0x010000ff}, got)
}

func TestDecodeSpirv(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    []uint32
		wantErr error
	}{
		{"valid", spirvBytes(SpirvMagic, 0x00010500, 7), []uint32{SpirvMagic, 0x00010500, 7}, nil},
		{"empty", nil, nil, ErrShaderNotWordAligned},
		{"partial word", append(spirvBytes(SpirvMagic), 0x01), nil, ErrShaderNotWordAligned},
		{"bad magic", spirvBytes(0xdeadbeef, 1), nil, ErrShaderBadMagic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSpirv(tt.data)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShaderLoaderLoadsWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raytrace.rgen.spv")
	require.NoError(t, os.WriteFile(path, spirvBytes(SpirvMagic, 42), 0o644))

	sl := &ShaderLoader{}
	res, err := sl.Load(path, metadata.ResourceTypeShader, map[string]string{"name": "raygen"})
	require.NoError(t, err)
	assert.Equal(t, "raygen", res.Name)
	assert.Equal(t, path, res.FullPath)
	assert.Equal(t, uint64(8), res.DataSize)
	assert.Equal(t, []uint32{SpirvMagic, 42}, res.Data)

	require.NoError(t, sl.Unload(res))
	assert.Nil(t, res.Data)
}

func TestShaderLoaderMissingFile(t *testing.T) {
	_, err := (&ShaderLoader{}).Load(filepath.Join(t.TempDir(), "nope.spv"), metadata.ResourceTypeShader, nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBinaryLoaderDefaultsNameToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	res, err := (&BinaryLoader{}).Load(path, metadata.ResourceTypeBinary, nil)
	require.NoError(t, err)
	assert.Equal(t, path, res.Name)
	assert.Equal(t, []byte{1, 2, 3}, res.Data)
}
