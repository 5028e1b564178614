// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage, the file layer of
//     configuration assembly and the target of "outbox config set"
package file
