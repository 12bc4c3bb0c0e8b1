// Package cmd implements the command-line interface for the keymint license
// key storefront. It provides a hierarchical command structure with
// operations for running the server and administering issued keys.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the keymint server
//   - keys: Operator commands executed against a running server (list,
//     issue, deactivate, rotate, report)
//   - util: Shared utilities for command-line processing (internal use)
//
// See keymint -help for a list of all commands.
package cmd
