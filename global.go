package crucible

import "sync/atomic"

var defaultContainer atomic.Pointer[Container]

func init() {
	defaultContainer.Store(New())
}

// Default returns the process-wide container. Programs that only ever
// need one container can configure and resolve through it directly.
func Default() *Container {
	return defaultContainer.Load()
}

// SetDefault replaces the process-wide container. The previous container
// is left untouched; close it yourself if it held singletons.
func SetDefault(c *Container) {
	if c == nil {
		panic("crucible: SetDefault(nil)")
	}

	defaultContainer.Store(c)
}

// ResetDefault closes the process-wide container and installs a fresh
// empty one.
func ResetDefault() {
	old := defaultContainer.Swap(New())
	old.Close()
}
