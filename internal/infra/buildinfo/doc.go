// Package buildinfo reports the version of the hotroute binary.
//
// Release builds inject the values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/hotroute/internal/infra/buildinfo.Version=v1.0.0"
//
// Values left unset are filled from the module build information embedded
// by the Go toolchain (VCS revision, commit time, Go version).
package buildinfo
