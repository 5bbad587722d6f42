// Package common holds process-wide glue shared by every service binary:
// logger setup and build identification.
package common

// PackageName tags metrics and logs emitted by this service.
const PackageName = "soulstore"

// Version is set at build time via -ldflags.
var Version = "dev"
