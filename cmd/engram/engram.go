// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	consolidatecmder "github.com/papercomputeco/engram/cmd/engram/consolidate"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is two-tier conversation memory for your agents.

Messages land in a short-term log as they arrive; a consolidation pass
distills them into durable long-term memories on a schedule or on demand.

Common commands:
  engram serve          Run the memory server (REST + MCP)
  engram consolidate    Run one consolidation cycle
  engram status         Show memory store status
  engram config         Manage persistent configuration`

const engramShortDesc string = "Engram - Agent Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram/ directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(consolidatecmder.NewConsolidateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
