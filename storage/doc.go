// Package storage provides content-addressed persistence for the storefront:
// token metadata documents and registry snapshots. Backends are created from
// location URIs by a factory and can be stacked into a redundant
// multi-backend that stores everywhere and fetches from the first backend
// holding the content.
//
// Supported schemes: memory:// (process-local, for tests and dev),
// file://, s3://, ipfs://, vault://.
package storage
