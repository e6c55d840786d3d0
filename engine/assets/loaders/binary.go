package loaders

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

// BinaryLoader reads a whole file as opaque bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read binary asset %s: %s", path, err)
		return nil, errors.Wrapf(err, "failed to read binary asset %s", path)
	}

	return &metadata.Resource{
		Name:     resourceName(path, params),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// resourceName takes the "name" entry of the loader params when present.
func resourceName(path string, params interface{}) string {
	if p, ok := params.(map[string]string); ok {
		if name, ok := p["name"]; ok {
			return name
		}
	}
	return path
}

// bytesToBytecode packs little-endian bytes into 32-bit words. A trailing
// partial word is dropped.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
