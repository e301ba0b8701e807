// ABOUTME: Build identity reported by the command line tools
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

// Version is the release version, or "dev" for local builds
var Version = "dev"

const (
	Product      = "mabridge"
	Manufacturer = "Resonate Protocol"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
