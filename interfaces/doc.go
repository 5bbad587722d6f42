// Package interfaces defines the core types and component contracts for the
// soul name storefront. It is the dependency-free meeting point between the
// name registry, the storefront, the identity issuer, payment settlement and
// the storage backends; none of the implementation packages import each other
// directly.
package interfaces
