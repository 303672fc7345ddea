// Package internal contains helper utilities that are intentionally private
// to sessiongate, including credential hashing and rotation-id minting.
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessiongate API.
//   - Be imported by any package outside the sessiongate module.
package internal
