// ABOUTME: Version information for voicelink binaries
// ABOUTME: Reported in relay handshakes, logs and the CLI version flag
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the product name
	Product = "Voicelink"

	// Manufacturer identifies the maker
	Manufacturer = "Voicelink Project"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
