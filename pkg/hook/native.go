package hook

import "sync"

// Factory constructs a platform key-event source.
type Factory func() (Source, error)

var (
	factoryMu     sync.Mutex
	nativeFactory Factory
)

// SetNativeSource installs the factory used by NativeSource. The embedding
// application registers its OS hook here; passing nil restores the default.
func SetNativeSource(factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	nativeFactory = factory
}

// NativeSource returns the platform key-event source, or
// ErrAccessibilityPermission when no hook has been registered.
func NativeSource() (Source, error) {
	factoryMu.Lock()
	factory := nativeFactory
	factoryMu.Unlock()

	if factory == nil {
		return nil, ErrAccessibilityPermission
	}
	return factory()
}
