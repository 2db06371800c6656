// Package version provides build version information embedding for
// hollowfoot binaries and the files they write.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/hollowfoot/version.Version=1.0.0" ./cmd/hollowfoot
package version
