// Package cli implements the nekowatch command-line interface.
//
// The root command loads nekowatch.yaml (or the NEKOWATCH_* environment)
// and hands a resolved config to each subcommand:
//
//	nekowatch serve              - Poll agents, run the history jobs, serve the API
//	nekowatch status             - Poll every host once and print a table
//	nekowatch history <host>     - Show stored load and traffic history
//	nekowatch hosts              - List the host registry
//	nekowatch hosts import FILE  - Load a hosts YAML file into the database
//	nekowatch hosts remove <host> - Delete a host and its history
//	nekowatch install <host>     - Install the agent over SSH
//	nekowatch update <host>      - Replace the agent binary and restart it
//	nekowatch exec <host> CMD    - Run a command over SSH
//	nekowatch shell <host>       - Open an interactive shell
//	nekowatch doctor             - Diagnose config, storage, agents and SSH
//
// Hosts are named by id or by display name. Global flags (--config,
// --verbose, --no-color, --json) live on the root command.
package cli
