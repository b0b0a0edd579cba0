// Package version holds the build version, set at link time with
// -ldflags "-X github.com/ndewijer/Market-Dashboard-Backend/internal/version.Version=v1.2.3".
package version

// Version is the running build's version.
var Version = "dev"
