package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chemlayout/pkg/templates"
)

// templatesCommand creates the command listing the cage template catalog.
func (c *CLI) templatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the cage templates used for polycyclic ring systems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := c.Config.Templates()
			if err != nil {
				return err
			}
			if lib == nil {
				lib = templates.Default()
			}
			for _, t := range lib.Templates() {
				printKeyValue(t.Name, fmt.Sprintf("%d atoms, %d bonds", t.Size(), len(t.Edges)))
				if t.Description != "" {
					printDetail("%s", t.Description)
				}
			}
			return nil
		},
	}
}
