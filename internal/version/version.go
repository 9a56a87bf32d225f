// ABOUTME: Version constants for the capture tool
// ABOUTME: Reported by the version command and the root --version flag
package version

const (
	// Version is the release version
	Version = "0.1.0"
	// Product is the product name
	Product = "Resonate Capture"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
