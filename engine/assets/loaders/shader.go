package loaders

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

var (
	ErrShaderNotWordAligned = errors.New("shader size is not a multiple of 4 bytes")
	ErrShaderBadMagic       = errors.New("shader is not a SPIR-V module")
)

// ShaderLoader reads a compiled SPIR-V module. The resource data is the
// module as []uint32, ready for shader module creation.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read shader %s: %s", path, err)
		return nil, errors.Wrapf(err, "failed to read shader %s", path)
	}

	code, err := DecodeSpirv(data)
	if err != nil {
		err = errors.Wrap(err, path)
		core.LogError(err.Error())
		return nil, err
	}

	return &metadata.Resource{
		Name:     resourceName(path, params),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

/**
 * @brief Converts raw SPIR-V bytes into words, checking the size and the magic
 * number. Empty input is an error.
 */
func DecodeSpirv(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrShaderNotWordAligned, "%d bytes", len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != SpirvMagic {
		return nil, errors.Wrapf(ErrShaderBadMagic, "magic 0x%08x", code[0])
	}
	return code, nil
}
