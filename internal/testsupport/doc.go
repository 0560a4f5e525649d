// Package testsupport provides temp configurations and an in-process fake
// compositor server for tests.
package testsupport
