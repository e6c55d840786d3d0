package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/reina/engine/assets/loaders"
	"github.com/spaghettifunk/reina/engine/core"
	"github.com/spaghettifunk/reina/engine/renderer/metadata"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Indexes the asset directory and watches it for changes. A changed
 * compiled shader is posted on the event bus as EVENT_CODE_SHADER_CHANGED; the
 * watcher goroutine never touches GPU state.
 */
type AssetManager struct {
	dir     string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	bus     *core.EventBus

	mutex sync.RWMutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

func NewAssetManager(bus *core.EventBus) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("failed to create asset watcher: %s", err)
		return nil, errors.Wrap(err, "failed to create asset watcher")
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		bus:      bus,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.dir = filepath.Clean(assetsDir)

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeShaderSource, &loaders.BinaryLoader{})

	if err := am.addRecursive(am.dir); err != nil {
		core.LogError("failed to watch %s: %s", am.dir, err)
		return errors.Wrapf(err, "failed to watch %s", am.dir)
	}

	go am.start()
	return nil
}

// Shutdown stops the watcher goroutine and waits for it to exit.
func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
	<-am.stopped
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads a file relative to the asset directory with the loader for
// its extension.
func (am *AssetManager) LoadAsset(filename string, params interface{}) (*metadata.Resource, error) {
	path := filepath.Join(am.dir, filename)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		err := errors.Wrap(ErrAssetNotFound, path)
		core.LogError(err.Error())
		return nil, err
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		err := errors.Errorf("no loader registered for asset type %s", asset.Type)
		core.LogError(err.Error())
		return nil, err
	}

	return loader.Load(path, asset.Type, params)
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource, resourceType metadata.ResourceType) error {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return errors.Errorf("no loader registered for asset type %s", resourceType)
	}
	return loader.Unload(res)
}

// Lookup reports what is indexed under filename.
func (am *AssetManager) Lookup(filename string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	info, ok := am.assets[filepath.Join(am.dir, filename)]
	return info, ok
}

// Relative turns a watcher path back into a name relative to the asset directory.
func (am *AssetManager) Relative(path string) string {
	rel, err := filepath.Rel(am.dir, path)
	if err != nil {
		return path
	}
	return rel
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", e)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", e.Name, err)
			}
		}
		return
	}

	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if am.handleFileEvent(e.Name) == metadata.ResourceTypeShader {
			ctx := core.EventContext{}
			ctx.Data.C[0] = e.Name
			am.bus.Post(core.EVENT_CODE_SHADER_CHANGED, am, ctx)
		}
	}
	// A deleted path cannot be stat'ed, so drop it from the index either way.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".rgen", ".rmiss", ".rchit", ".vert", ".frag":
		return metadata.ResourceTypeShaderSource
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
