package version

// Version is the current version of the riptide engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/riptide-labs/riptide/internal/version.Version=1.2.3"
// The default value indicates a development build.
var Version = "dev"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
