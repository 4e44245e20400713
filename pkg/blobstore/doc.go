// Package blobstore stores project payloads. Two backends are provided:
// a local filesystem store and an S3-compatible object store.
package blobstore
